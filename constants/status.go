package constants

// Stage is the pipeline state a document has reached.
type Stage string

// Stable values (stored as-is in the run store).
const (
	StageUploaded      Stage = "UPLOADED"
	StageExtracted     Stage = "EXTRACTED"
	StageParsed        Stage = "PARSED"
	StageClassified    Stage = "CLASSIFIED"
	StageInterpreted   Stage = "INTERPRETED"
	StageSafetyChecked Stage = "SAFETY_CHECKED"
	StageDelivered     Stage = "DELIVERED"
)

// Stages lists every stage in the order a run passes through them.
var Stages = []Stage{
	StageUploaded,
	StageExtracted,
	StageParsed,
	StageClassified,
	StageInterpreted,
	StageSafetyChecked,
	StageDelivered,
}
