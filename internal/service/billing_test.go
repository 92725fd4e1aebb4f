package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
)

type fakeStore struct {
	records []*recognition.BilledRecord
	raws    []map[string]interface{}
	err     error
}

func (f *fakeStore) CreateRecord(_ context.Context, record *recognition.BilledRecord, raw map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	f.raws = append(f.raws, raw)
	return nil
}

func unknownResult() *recognition.Result {
	return &recognition.Result{
		PlateNumber:       recognition.PlateUnknown,
		CountryIdentifier: recognition.CountryUnknown,
		Confidence:        0.5,
		Origin:            recognition.OriginLocal,
	}
}

func TestBillInvariants(t *testing.T) {
	store := &fakeStore{}
	billing := NewBillingService(store, 5, rand.New(rand.NewSource(1)), zerolog.Nop())

	result := &recognition.Result{
		PlateNumber:       "AA70 PYY",
		CountryIdentifier: "GB",
		Confidence:        0.74,
		Origin:            recognition.OriginLocal,
	}

	for i := 0; i < 200; i++ {
		record, err := billing.Bill(context.Background(), result, "", "AA70PYY.jpg")
		if err != nil {
			t.Fatalf("Bill() error = %v", err)
		}
		if record.DwellSeconds < 1 || record.DwellSeconds > 20 {
			t.Errorf("DwellSeconds = %d, want in [1,20]", record.DwellSeconds)
		}
		if record.Fee != float64(record.DwellSeconds)*5 {
			t.Errorf("Fee = %v, want dwell*5 = %v", record.Fee, float64(record.DwellSeconds)*5)
		}
		if record.Status != "complete" {
			t.Errorf("Status = %q, want complete", record.Status)
		}
	}

	if len(store.records) != 200 {
		t.Errorf("persisted %d records, want 200 (one per invocation, no dedup)", len(store.records))
	}
}

func TestBillUnknownOutcomeIsBillable(t *testing.T) {
	store := &fakeStore{}
	billing := NewBillingService(store, 5, rand.New(rand.NewSource(1)), zerolog.Nop())

	record, err := billing.Bill(context.Background(), unknownResult(), "", "")
	if err != nil {
		t.Fatalf("Bill() error = %v", err)
	}
	if record.PlateNumber != recognition.PlateUnknown {
		t.Errorf("PlateNumber = %q, want UNKNOWN", record.PlateNumber)
	}
	if len(store.records) != 1 {
		t.Errorf("persisted %d records, want 1", len(store.records))
	}
}

func TestBillDwellIsDeterministicForFixedSeed(t *testing.T) {
	first, err := NewBillingService(&fakeStore{}, 5, rand.New(rand.NewSource(3)), zerolog.Nop()).
		Bill(context.Background(), unknownResult(), "", "")
	if err != nil {
		t.Fatalf("Bill() error = %v", err)
	}
	second, err := NewBillingService(&fakeStore{}, 5, rand.New(rand.NewSource(3)), zerolog.Nop()).
		Bill(context.Background(), unknownResult(), "", "")
	if err != nil {
		t.Fatalf("Bill() error = %v", err)
	}

	if first.DwellSeconds != second.DwellSeconds {
		t.Errorf("same seed produced dwell %d and %d", first.DwellSeconds, second.DwellSeconds)
	}
}

func TestBillPersistenceFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection lost")}
	billing := NewBillingService(store, 5, rand.New(rand.NewSource(1)), zerolog.Nop())

	record, err := billing.Bill(context.Background(), unknownResult(), "", "")
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	if record != nil {
		t.Errorf("record = %+v, want nil on persistence failure", record)
	}
}
