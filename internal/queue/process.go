package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/slidescribe/backend/internal/storage"
	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
	"github.com/slidescribe/backend/pkg/transcript"
)

// SlideSource loads the slides of a stored presentation, writing its images
// to the part of the media store reserved for scope.
// The loader in pkg/loader/pptx implements it.
type SlideSource interface {
	Slides(ctx context.Context, path, scope string) ([]pptx.Slide, error)
	Forget(path, scope string)
}

// ExtractDeps bundles what ProcessExtractMessage needs besides the channel.
type ExtractDeps struct {
	Slides  SlideSource
	Client  ai.TranscriptClient
	Store   media.Store
	Options transcript.Options
	// Uploads, when set, has the presentation removed once its job is done.
	Uploads storage.Uploads
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is or wraps a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ProcessExtractMessage extracts the presentation named in msg, generates its
// transcript group by group and publishes every group on the job topic,
// followed by a done event.
func ProcessExtractMessage(ctx context.Context, deps ExtractDeps, ch Channel, msg string) error {
	var data QueueExtractMsg
	if err := json.Unmarshal([]byte(msg), &data); err != nil {
		return &PermanentError{Err: fmt.Errorf("decode message: %w", err)}
	}
	if data.JobID == "" || data.FileKey == "" {
		return &PermanentError{Err: errors.New("message without job id or file key")}
	}
	if err := media.ValidateScope(data.JobID); err != nil {
		return &PermanentError{Err: fmt.Errorf("job id: %w", err)}
	}
	logger.Info("[Queue] Processing job", "job_id", data.JobID, "file", data.FileName)

	// Images of a job live below its id.
	defer deps.Slides.Forget(data.FileKey, data.JobID)

	start := time.Now()
	slides, err := deps.Slides.Slides(ctx, data.FileKey, data.JobID)
	if err != nil {
		var corrupt *pptx.CorruptArchiveError
		if errors.As(err, &corrupt) {
			return &PermanentError{Err: err}
		}
		return fmt.Errorf("extract %s: %w", data.FileKey, err)
	}
	logger.Info("[Queue] Extracted slides", "job_id", data.JobID, "slides", len(slides), "duration", time.Since(start))

	if err := PublishEvent(ch, Event{Type: EventExtracted, JobID: data.JobID, Slides: len(slides)}); err != nil {
		return fmt.Errorf("publish extracted event: %w", err)
	}

	opts := deps.Options
	if data.GroupSize > 0 {
		opts.GroupSize = data.GroupSize
	}

	gen := transcript.NewGenerator(deps.Client, deps.Store, opts)
	err = gen.Run(ctx, slides, func(r transcript.GroupResult) error {
		return PublishEvent(ch, Event{
			Type:        EventGroup,
			JobID:       data.JobID,
			GroupNumber: r.GroupNumber,
			Result:      r.Result,
		})
	})
	if err != nil {
		return err
	}

	if err := PublishEvent(ch, Event{Type: EventDone, JobID: data.JobID}); err != nil {
		return fmt.Errorf("publish done event: %w", err)
	}
	if deps.Uploads != nil {
		if err := deps.Uploads.Delete(ctx, data.FileKey); err != nil {
			logger.Warn("[Queue] Could not delete upload", "job_id", data.JobID, "key", data.FileKey, "err", err)
		}
	}
	logger.Info("[Queue] Job finished", "job_id", data.JobID, "duration", time.Since(start))
	return nil
}

// JobIDFromMessage returns the job id of a queue message, or "" when the body
// cannot be decoded.
func JobIDFromMessage(body []byte) string {
	var data QueueExtractMsg
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	return data.JobID
}
