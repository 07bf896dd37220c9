package annotation

// Mode is the annotation regime of a task.
type Mode string

const (
	// ModeBox allows arbitrary time/frequency rectangles, each carrying its
	// own label.
	ModeBox Mode = "box"
	// ModeWholeFile is the presence/absence regime: one tag-level annotation
	// per label, no time/frequency extent.
	ModeWholeFile Mode = "wholefile"
)

// Kind discriminates the annotation union.
type Kind string

const (
	KindBox Kind = "box"
	KindTag Kind = "tag"
)

// WholeFileExtent is the sentinel extent value of tag annotations, meaning
// "applies to the whole file".
const WholeFileExtent = -1

// Comment is a free-text note attached to an annotation or to the task
// itself. ID is 0 until the campaign service has persisted it.
type Comment struct {
	ID      int64  `yaml:"id" json:"id"`
	Content string `yaml:"content" json:"content"`
}

// Annotation is a single sound-event label. Server-assigned identifiers are
// positive; until the campaign service assigns one, the identifier is a
// locally unique negative placeholder.
type Annotation struct {
	ID             int64     `yaml:"id" json:"id"`
	Kind           Kind      `yaml:"kind" json:"kind"`
	StartTime      float64   `yaml:"start_time" json:"start_time"`
	EndTime        float64   `yaml:"end_time" json:"end_time"`
	StartFrequency float64   `yaml:"start_frequency" json:"start_frequency"`
	EndFrequency   float64   `yaml:"end_frequency" json:"end_frequency"`
	Label          string    `yaml:"label" json:"label"`
	Confidence     string    `yaml:"confidence" json:"confidence"`
	Active         bool      `yaml:"-" json:"active"`
	Comments       []Comment `yaml:"comments" json:"comments"`
}

// NewTag builds a whole-file presence annotation for a label.
func NewTag(label string) *Annotation {
	return &Annotation{
		Kind:           KindTag,
		StartTime:      WholeFileExtent,
		EndTime:        WholeFileExtent,
		StartFrequency: WholeFileExtent,
		EndFrequency:   WholeFileExtent,
		Label:          label,
	}
}

// IsTemporary reports whether the annotation still carries a local
// placeholder identifier.
func (a *Annotation) IsTemporary() bool {
	return a.ID < 0
}

// HasExtent reports whether the annotation has a real time extent (tags have
// only the sentinel).
func (a *Annotation) HasExtent() bool {
	return a.Kind == KindBox && a.EndTime > a.StartTime
}
