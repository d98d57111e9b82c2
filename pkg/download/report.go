package download

// Status is the outcome of downloading a single episode.
type Status string

const (
	StatusDownloaded = Status("downloaded")
	StatusFailed     = Status("failed")
	StatusSkipped    = Status("skipped")
)

// Outcome describes what happened to one episode.
type Outcome struct {
	ID     string
	Title  string
	Status Status
	// Files are the committed paths for downloaded episodes
	Files []string
	// Reason explains failures and skips
	Reason string
}

// Report enumerates per-episode outcomes of one scheduler run.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) Downloaded() int { return r.count(StatusDownloaded) }
func (r *Report) Failed() int     { return r.count(StatusFailed) }
func (r *Report) Skipped() int    { return r.count(StatusSkipped) }
