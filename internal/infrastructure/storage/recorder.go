package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
	"object-detector/internal/infrastructure/imageio"
)

// Recorder наблюдатель прогона, сохраняющий вырезки найденных объектов в репозиторий.
type Recorder struct {
	repo   port.ObjectRepository
	logger logrus.FieldLogger
}

// NewRecorder создаёт наблюдатель-писатель.
func NewRecorder(repo port.ObjectRepository, logger logrus.FieldLogger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// OnItem вырезает каждый объект из исходного файла и сохраняет новые.
func (r *Recorder) OnItem(ctx context.Context, ev entity.ItemEvent) error {
	res := ev.Result
	if res.Failed() || len(res.Detections) == 0 {
		return nil
	}

	img, err := imageio.Load(string(res.Item))
	if err != nil {
		return err
	}

	objects := make([]entity.StoredObject, 0, len(res.Detections))
	for _, d := range res.Detections {
		crop, err := imageio.Crop(img, d.Box)
		if err != nil {
			r.logger.WithFields(logrus.Fields{"item": res.Item.Name(), "label": d.Label}).WithError(err).Warn("skip object")
			continue
		}
		objects = append(objects, entity.NewStoredObject(ev.RunID, res.Item, d, crop))
	}

	saved, err := r.repo.Save(ctx, objects)
	if err != nil {
		return fmt.Errorf("save objects of %s: %w", res.Item.Name(), err)
	}

	r.logger.WithFields(logrus.Fields{
		"item":  res.Item.Name(),
		"saved": saved,
		"dups":  len(objects) - saved,
	}).Debug("objects stored")
	return nil
}

var _ port.Observer = (*Recorder)(nil)
