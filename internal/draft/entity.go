// Package draft persists unsubmitted annotation work so a crashed or closed
// session can be resumed on the same task.
package draft

import (
	"time"

	"github.com/pelagiclabs/annotator/internal/annotation"
)

// Draft is the autosaved working state of one task.
type Draft struct {
	TaskID      int64                    `yaml:"task_id"`
	SavedAt     time.Time                `yaml:"saved_at"`
	Annotations []*annotation.Annotation `yaml:"annotations"`
	TaskComment annotation.Comment       `yaml:"task_comment"`
}
