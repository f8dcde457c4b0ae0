// Package report строит выгрузки задач: книгу Excel, массовый импорт и QR-этикетки.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// SheetName - лист выгрузки задач.
const SheetName = "派车任务"

var exportHeaders = []string{
	"任务编号", "派车轨道", "需求类型", "运输类型", "起点", "终点", "承运公司",
	"吨位", "体积", "需求时间", "状态", "当前处理角色", "审核状态", "备注", "创建时间",
}

// BuildTasksWorkbook формирует книгу с одной строкой на задачу.
// Закрыть книгу должен вызывающий.
func BuildTasksWorkbook(tasks []models.DispatchTask) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("BuildTasksWorkbook: ошибка создания листа: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("BuildTasksWorkbook: ошибка удаления листа по умолчанию: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
		f.SetCellStyle(SheetName, "A1", last, style)
	}
	f.SetColWidth(SheetName, "A", "O", 16)

	for i, t := range tasks {
		row := i + 2
		values := []any{
			t.TaskID,
			string(t.Track),
			t.RequirementType,
			t.TransportType,
			t.StartLocation,
			t.EndLocation,
			t.CarrierCompany,
			t.Weight,
			t.Volume,
			t.RequiredTime.Local().Format(constants.RequiredTimeAltLayout),
			string(t.Status),
			string(t.CurrentHandlerRole),
			string(t.AuditStatus),
			t.Remarks.String,
			t.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("BuildTasksWorkbook: ошибка записи ячейки %s: %w", cell, err)
			}
		}
	}
	return f, nil
}

// WriteTasksXLSX пишет выгрузку задач в w.
func WriteTasksXLSX(w io.Writer, tasks []models.DispatchTask) error {
	f, err := BuildTasksWorkbook(tasks)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteTasksXLSX: ошибка записи книги: %w", err)
	}
	return nil
}
