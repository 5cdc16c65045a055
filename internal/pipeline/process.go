package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/translation"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/corona10/goimagehash"
	"github.com/google/uuid"
)

// ProcessFrame drives a single frame through detection, filtering,
// translation and compositing. It does not touch the lifecycle state or the
// statistics and can be used without starting the pipeline. Failures are
// returned as *FrameError; cancellation is returned as ctx.Err().
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame capture.Frame, tr translation.Translator) (TranslatedFrame, error) {
	if tr == nil {
		return TranslatedFrame{}, &FrameError{Stage: StageTranslate, CapturedAt: frame.CapturedAt, Err: errNilTranslator}
	}
	return o.processFrame(ctx, frame, tr, nil)
}

var errNilTranslator = errors.New("translator is nil")

func (o *Orchestrator) processFrame(ctx context.Context, frame capture.Frame, tr translation.Translator, mem *frameMemory) (TranslatedFrame, error) {
	start := time.Now()
	fail := func(stage string, err error) (TranslatedFrame, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return TranslatedFrame{}, ctxErr
		}
		return TranslatedFrame{}, &FrameError{Stage: stage, CapturedAt: frame.CapturedAt, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return TranslatedFrame{}, err
	}
	if err := utils.ValidateImageConstraints(frame.Image, o.config.Constraints); err != nil {
		return fail(StageValidate, err)
	}

	var (
		regions  []region.TextRegion
		detected int
		reused   bool
		hash     *goimagehash.ImageHash
	)
	if mem != nil {
		hash, reused = mem.lookup(frame.Image)
		if reused {
			regions, detected = region.Clone(mem.regions), mem.detected
		}
	}

	if !reused {
		found, err := o.deps.Detector.Detect(ctx, frame.Image)
		if err != nil {
			return fail(StageDetect, err)
		}
		if err := ctx.Err(); err != nil {
			return TranslatedFrame{}, err
		}
		detected = len(found)

		candidates := o.deps.Filter.Filter(found)
		regions, err = o.deps.Batcher.Translate(ctx, candidates, tr)
		if err != nil {
			return fail(StageTranslate, err)
		}
		if err := ctx.Err(); err != nil {
			return TranslatedFrame{}, err
		}
		if mem != nil {
			mem.remember(hash, regions, detected)
		}
	}

	img, err := o.deps.Compositor.Render(regions, frame.Image)
	if err != nil {
		return fail(StageRender, err)
	}

	return TranslatedFrame{
		ID:                 uuid.NewString(),
		Image:              img,
		Regions:            region.Clone(regions),
		Detected:           detected,
		CaptureTime:        frame.CapturedAt,
		ProcessingDuration: time.Since(start),
		ContentRect:        frame.ContentRect,
		Source:             frame.Source,
		Reused:             reused,
	}, nil
}
