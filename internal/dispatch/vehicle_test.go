package dispatch_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
)

func vehicleInput(manifest, dispatchNo string) *dispatch.VehicleInput {
	vol := 38.0
	return &dispatch.VehicleInput{
		ManifestNumber: manifest,
		DispatchNumber: dispatchNo,
		LicensePlate:   "京A12345",
		CarriageNumber: "C-07",
		Volume:         &vol,
	}
}

func TestConfirmSupplierResponseOnce(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, "TX", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)

	task, err := f.svc.ConfirmSupplierResponse(f.ctx, "TX", supplier, vehicleInput("MN001", "DN00001"), "")
	require.NoError(t, err)
	assert.Equal(t, constants.STATUS_SUPPLIER_RESPONDED, task.Status)
	assert.Equal(t, supplier.ID, task.AssignedSupplierID.Int64)

	v, err := f.svc.GetVehicle(f.ctx, "TX")
	require.NoError(t, err)
	assert.Equal(t, "MN001", v.ManifestNumber)
	assert.Equal(t, "京A12345", v.LicensePlate)
	assert.InDelta(t, 38.0, v.Volume.Float64, 0.001)
	assert.NotEmpty(t, v.ID)

	_, err = f.svc.ConfirmSupplierResponse(f.ctx, "TX", supplier, vehicleInput("MN002", "DN00002"), "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), dispatch.MsgVehicleExists)

	v, err = f.svc.GetVehicle(f.ctx, "TX")
	require.NoError(t, err)
	assert.Equal(t, "MN001", v.ManifestNumber)

	history, err := f.svc.GetHistory(f.ctx, "TX")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConfirmSupplierResponseCollisions(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, "T1", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)
	f.seedTask(t, "T2", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)
	f.seedTask(t, "T3", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)

	_, err := f.svc.ConfirmSupplierResponse(f.ctx, "T1", supplier, vehicleInput("MN001", "DN00001"), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		taskID string
		input  *dispatch.VehicleInput
		field  string
	}{
		{"manifest taken", "T2", vehicleInput("MN001", "DN00002"), "manifest_number"},
		{"dispatch number taken", "T3", vehicleInput("MN003", "DN00001"), "dispatch_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.mustGet(t, tt.taskID)

			_, err := f.svc.ConfirmSupplierResponse(f.ctx, tt.taskID, supplier, tt.input, "")
			require.Error(t, err)
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
			assert.Equal(t, tt.field, apperr.FieldOf(err))

			// ни машины, ни смены статуса
			assert.Equal(t, before, f.mustGet(t, tt.taskID))
			_, err = f.svc.GetVehicle(f.ctx, tt.taskID)
			assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		})
	}
}

func TestConfirmSupplierResponseGuards(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, "TA", constants.TRACK_A, constants.STATUS_PENDING_AUDIT)
	f.seedTask(t, "TB", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)

	bad := vehicleInput("MN010", "DN00010")
	bad.LicensePlate = "AB12345"

	short := vehicleInput("MN1", "DN00011")

	inf := math.Inf(1)
	infinite := vehicleInput("MN00013", "DN00013")
	infinite.Volume = &inf

	tests := []struct {
		name   string
		taskID string
		actor  dispatch.Actor
		input  *dispatch.VehicleInput
		kind   apperr.Kind
	}{
		{"not found", "T404", supplier, nil, apperr.KindNotFound},
		{"awaiting audit", "TA", supplier, nil, apperr.KindInvalidState},
		{"not a supplier", "TB", regional, nil, apperr.KindPermissionDenied},
		{"bad plate", "TB", supplier, bad, apperr.KindValidation},
		{"short manifest", "TB", supplier, short, apperr.KindValidation},
		{"infinite volume", "TB", supplier, infinite, apperr.KindValidation},
		{"missing dispatch number", "TB", supplier, &dispatch.VehicleInput{ManifestNumber: "MN00012", LicensePlate: "沪B123456"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ConfirmSupplierResponse(f.ctx, tt.taskID, tt.actor, tt.input, "")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), err)
		})
	}
	assert.Equal(t, constants.STATUS_PENDING_SUPPLIER_RESPONSE, f.mustGet(t, "TB").Status)
}

func TestConfirmWithoutVehicleThenAgain(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, "T1", constants.TRACK_A, constants.STATUS_PENDING_SUPPLIER_RESPONSE)

	_, err := f.svc.ConfirmSupplierResponse(f.ctx, "T1", supplier, nil, "收到")
	require.NoError(t, err)

	_, err = f.svc.ConfirmSupplierResponse(f.ctx, "T1", supplier, nil, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), err)

	_, err = f.svc.GetVehicle(f.ctx, "T1")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestConfirmLeavesCallerInputUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t, "T1", constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE)

	in := vehicleInput("  MN00020 ", "DN00020")
	in.LicensePlate = " 京a12345 "

	_, err := f.svc.ConfirmSupplierResponse(f.ctx, "T1", supplier, in, "")
	require.NoError(t, err)
	assert.Equal(t, "  MN00020 ", in.ManifestNumber)
	assert.Equal(t, " 京a12345 ", in.LicensePlate)

	v, err := f.svc.GetVehicle(f.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "MN00020", v.ManifestNumber)
	assert.Equal(t, "京A12345", v.LicensePlate)
}
