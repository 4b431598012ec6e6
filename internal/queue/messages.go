package queue

import (
	"encoding/json"

	"github.com/slidescribe/backend/pkg/ai"
)

// QueueExtractMsg asks the worker to transcribe an uploaded presentation.
type QueueExtractMsg struct {
	Message   string `json:"message"`
	JobID     string `json:"job_id"`
	FileName  string `json:"file_name"`
	FileKey   string `json:"file_key"`
	GroupSize int    `json:"group_size,omitempty"`
}

// EventType tags an Event.
type EventType string

const (
	EventExtracted EventType = "extracted"
	EventGroup     EventType = "group"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is published on the job topic while a job is processed. Group events
// carry one transcript group, the last event of a job is done or error.
type Event struct {
	Type        EventType              `json:"type"`
	JobID       string                 `json:"jobId"`
	Slides      int                    `json:"slides,omitempty"`
	GroupNumber int                    `json:"groupNumber,omitempty"`
	Result      []ai.TranscriptSegment `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Final reports whether no further events follow e.
func (e Event) Final() bool {
	return e.Type == EventDone || e.Type == EventError
}

// JobTopic is the routing key of the events of a job.
func JobTopic(jobID string) string {
	return "job." + jobID
}

// PublishEvent publishes ev on the topic of its job.
func PublishEvent(ch Channel, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return PublishTopic(ch, JobTopic(ev.JobID), data)
}
