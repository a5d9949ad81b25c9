package docmerge

// Row is one data-source record, keyed by column name. Values are raw
// cell values: string, float64, int, bool, time.Time or nil.
type Row = map[string]any

// State is the batch orchestrator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateStoppedOnError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateStoppedOnError:
		return "stopped_on_error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// GeneratedFile is one rendered artifact produced from one data row, or
// the archive bundling a whole run.
type GeneratedFile struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}

// RowError records one isolated row failure.
type RowError struct {
	Row     int    `json:"row"` // 1-based data row number
	Message string `json:"message"`
}

// Result is the accumulated outcome of a batch run. Successful plus
// Failed never exceeds the number of rows actually attempted; rows
// skipped for emptiness count toward neither. Partial success is a
// normal terminal state.
type Result struct {
	State      State           `json:"state"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Total      int             `json:"total"` // rows selected for the run
	Files      []GeneratedFile `json:"files"`
	Errors     []RowError      `json:"errors"`
}
