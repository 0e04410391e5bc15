package intake

import "github.com/your-org/mediaintake/internal/engine"

// ProgressEvent reports where the batch is. Percentage never decreases over
// the life of a batch.
type ProgressEvent struct {
	BatchID          string       `json:"batch_id"`
	CurrentFileIndex int          `json:"current_file_index"`
	TotalFiles       int          `json:"total_files"`
	FileName         string       `json:"file_name"`
	Stage            engine.Stage `json:"stage"`
	Percentage       float64      `json:"percentage"`
}

var stageFractions = map[engine.Stage]float64{
	engine.StageValidating:          0.1,
	engine.StageCompressing:         0.35,
	engine.StageGeneratingThumbnail: 0.7,
	engine.StageProcessing:          0.9,
	engine.StageCompleted:           1,
}

type progress struct {
	batchID string
	total   int
	last    float64
	fn      func(ProgressEvent)
}

// emit reports stage for the file at the 1-based processing ordinal.
func (p *progress) emit(ordinal int, name string, stage engine.Stage) {
	if p.fn == nil {
		return
	}
	pct := (float64(ordinal-1) + stageFractions[stage]) / float64(p.total) * 100
	pct = min(max(pct, p.last), 100)
	p.last = pct
	p.fn(ProgressEvent{
		BatchID:          p.batchID,
		CurrentFileIndex: ordinal,
		TotalFiles:       p.total,
		FileName:         name,
		Stage:            stage,
		Percentage:       pct,
	})
}
