package report

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"dispatchtrack/internal/models"
)

// LabelSize - сторона PNG-этикетки в пикселях.
const LabelSize = 256

// LabelPayload - содержимое QR-кода: task_id|STATUS|TRACK (канонические имена).
func LabelPayload(t *models.DispatchTask) string {
	return fmt.Sprintf("%s|%s|%s", t.TaskID, t.Status.Code(), t.Track.Code())
}

// TaskLabelPNG кодирует этикетку задачи в PNG.
func TaskLabelPNG(t *models.DispatchTask) ([]byte, error) {
	png, err := qrcode.Encode(LabelPayload(t), qrcode.Medium, LabelSize)
	if err != nil {
		return nil, fmt.Errorf("TaskLabelPNG: ошибка кодирования QR-кода для задачи %s: %w", t.TaskID, err)
	}
	return png, nil
}
