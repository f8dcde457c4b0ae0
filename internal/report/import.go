package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

// TaskCreator - то, что нужно импорту от сервиса задач.
type TaskCreator interface {
	CreateTask(ctx context.Context, actor dispatch.Actor, trackRequest string, in dispatch.TaskInput) (*models.DispatchTask, error)
}

// ImportResult - итог по одной строке листа. Row - номер строки в Excel (с 1).
type ImportResult struct {
	Row    int    `json:"row"`
	TaskID string `json:"task_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Заголовки столбцов импорта. Порядок столбцов в файле произвольный.
const (
	colRequirement = "需求类型"
	colTransport   = "运输类型"
	colStart       = "起点"
	colEnd         = "终点"
	colCarrier     = "承运公司"
	colWeight      = "吨位"
	colVolume      = "体积"
	colTime        = "需求时间"
	colRemarks     = "备注"
	colTrack       = "派车轨道"
)

var requiredImportColumns = []string{
	colRequirement, colTransport, colStart, colEnd, colCarrier, colWeight, colVolume, colTime,
}

// ImportTasks читает первый лист книги и создаёт по задаче на строку от имени actor.
// Ошибка строки попадает в её результат и не прерывает импорт.
func ImportTasks(ctx context.Context, creator TaskCreator, actor dispatch.Actor, r io.Reader) ([]ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("file", "无法读取Excel文件")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("file", "Excel文件中没有工作表")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ImportTasks: ошибка чтения строк листа %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("file", "Excel文件为空")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredImportColumns {
		if _, ok := columns[name]; !ok {
			return nil, apperr.Validation("file", fmt.Sprintf("缺少列：%s", name))
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	results := []ImportResult{}
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		res := ImportResult{Row: n + 2}

		in := dispatch.TaskInput{
			RequirementType: cell(row, colRequirement),
			TransportType:   cell(row, colTransport),
			StartLocation:   cell(row, colStart),
			EndLocation:     cell(row, colEnd),
			CarrierCompany:  cell(row, colCarrier),
			Weight:          cell(row, colWeight),
			RequiredTime:    cell(row, colTime),
			Remarks:         cell(row, colRemarks),
		}
		if raw := cell(row, colVolume); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				res.fail(apperr.Validation("volume", "体积必须是数字"))
				results = append(results, res)
				continue
			}
			in.Volume = v
		}

		task, err := creator.CreateTask(ctx, actor, cell(row, colTrack), in)
		if err != nil {
			res.fail(err)
		} else {
			res.TaskID = task.TaskID
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *ImportResult) fail(err error) {
	r.Kind = string(apperr.KindOf(err))
	r.Field = apperr.FieldOf(err)
	r.Error = apperr.PublicMessage(err)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
