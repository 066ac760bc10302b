package reconciliation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	domainerrors "github.com/racunko/racunko-backend/internal/domain/errors"
	"github.com/racunko/racunko-backend/internal/domain/values"
	"github.com/racunko/racunko-backend/internal/service/reconciliation"
	"github.com/racunko/racunko-backend/internal/testutil/fixtures"
)

const epsPeriod = "2025-10-05_2025-11-01"

func mustPeriod(t *testing.T, token string) values.BillingPeriod {
	t.Helper()
	p, err := values.ParseBillingPeriod(token)
	require.NoError(t, err)
	return p
}

func newClassifier(repo reconciliation.BillRepository) reconciliation.Service {
	return reconciliation.NewService(repo, nil, nil)
}

func TestClassify_PeriodAmountPass(t *testing.T) {
	tests := []struct {
		name     string
		existing func(t *testing.T) []*bill.Bill
		incoming func(t *testing.T) *bill.Bill
		period   string
		wantKind reconciliation.DispositionKind
		wantWhy  string
	}{
		{
			name: "same period, amount and merchant blocks unpaid duplicate",
			existing: func(t *testing.T) []*bill.Bill {
				return []*bill.Bill{
					fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).Build(),
				}
			},
			incoming: func(t *testing.T) *bill.Bill {
				return fixtures.NewBillBuilder(t).Unpersisted().Build()
			},
			period:   epsPeriod,
			wantKind: reconciliation.BlockDuplicateOfUnpaid,
			wantWhy:  reconciliation.ReasonPeriodAmountMerchant,
		},
		{
			name: "amount inside tolerance still matches",
			existing: func(t *testing.T) []*bill.Bill {
				return []*bill.Bill{
					fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).WithAmount("4521.40").Build(),
				}
			},
			incoming: func(t *testing.T) *bill.Bill {
				return fixtures.NewBillBuilder(t).Unpersisted().WithAmount("4521.36").Build()
			},
			period:   epsPeriod,
			wantKind: reconciliation.BlockDuplicateOfUnpaid,
			wantWhy:  reconciliation.ReasonPeriodAmountMerchant,
		},
		{
			name: "different merchant with same account id matches on account",
			existing: func(t *testing.T) []*bill.Bill {
				return []*bill.Bill{
					fixtures.NewBillBuilder(t).
						WithBillingPeriod(epsPeriod).
						WithMerchant("ЕПС СНАБДЕВАЊЕ БЕОГРАД").
						WithBillingAccountID("1234-5678-9").
						Build(),
				}
			},
			incoming: func(t *testing.T) *bill.Bill {
				return fixtures.NewBillBuilder(t).
					Unpersisted().
					WithMerchant("EPS Distribucija").
					WithBillingAccountID("123456789").
					Build()
			},
			period:   epsPeriod,
			wantKind: reconciliation.BlockDuplicateOfUnpaid,
			wantWhy:  reconciliation.ReasonPeriodAmountAccount,
		},
		{
			name: "different merchant without account ids is a coincidental amount",
			existing: func(t *testing.T) []*bill.Bill {
				return []*bill.Bill{
					fixtures.NewBillBuilder(t).
						WithBillingPeriod(epsPeriod).
						WithMerchant("JKP Infostan").
						Build(),
				}
			},
			incoming: func(t *testing.T) *bill.Bill {
				return fixtures.NewBillBuilder(t).Unpersisted().Build()
			},
			period:   epsPeriod,
			wantKind: reconciliation.NoDuplicate,
		},
		{
			name: "different period never matches by amount alone",
			existing: func(t *testing.T) []*bill.Bill {
				return []*bill.Bill{
					fixtures.NewBillBuilder(t).
						WithBillingPeriod("2025-09-05_2025-10-01").
						Build(),
				}
			},
			incoming: func(t *testing.T) *bill.Bill {
				return fixtures.NewBillBuilder(t).Unpersisted().Build()
			},
			period:   epsPeriod,
			wantKind: reconciliation.NoDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryBillRepo{}
			repo.add(tt.existing(t)...)
			svc := newClassifier(repo)

			d, err := svc.Classify(context.Background(), tt.incoming(t), mustPeriod(t, tt.period))
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, d.Kind)
			if tt.wantWhy != "" {
				assert.Equal(t, tt.wantWhy, d.Reason)
			}
		})
	}
}

func TestClassify_InvoiceNumberPass(t *testing.T) {
	t.Run("same invoice number in the month window blocks", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).WithInvoiceNumber("RN-2025/10-0042").Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).
			Unpersisted().
			WithInvoiceNumber("rn 2025 10 0042").
			Build()

		d, err := svc.Classify(context.Background(), incoming, values.BillingPeriod{})
		require.NoError(t, err)
		assert.Equal(t, reconciliation.BlockDuplicateOfUnpaid, d.Kind)
		assert.Equal(t, reconciliation.ReasonInvoiceNumber, d.Reason)
	})

	t.Run("empty invoice numbers never match", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).WithInvoiceNumber("").Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).
			Unpersisted().
			WithMerchant("Another Shop").
			WithInvoiceNumber("").
			Build()

		d, err := svc.Classify(context.Background(), incoming, values.BillingPeriod{})
		require.NoError(t, err)
		assert.Equal(t, reconciliation.NoDuplicate, d.Kind)
	})

	t.Run("candidate outside the window is not fetched", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).
			WithDate(time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)).
			WithInvoiceNumber("RN-42").
			Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).
			Unpersisted().
			WithDate(time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)).
			WithInvoiceNumber("RN-42").
			Build()

		d, err := svc.Classify(context.Background(), incoming, values.BillingPeriod{})
		require.NoError(t, err)
		assert.Equal(t, reconciliation.NoDuplicate, d.Kind)
	})

	t.Run("period pass outranks invoice pass", func(t *testing.T) {
		repo := &memoryBillRepo{}
		periodMatch := fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).Build()
		invoiceMatch := fixtures.NewBillBuilder(t).
			WithMerchant("Unrelated").
			WithAmount("99.99").
			WithInvoiceNumber("RN-42").
			Build()
		repo.add(periodMatch, invoiceMatch)
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).
			Unpersisted().
			WithInvoiceNumber("RN-42").
			Build()

		d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.NoError(t, err)
		assert.Equal(t, reconciliation.BlockDuplicateOfUnpaid, d.Kind)
		assert.Equal(t, reconciliation.ReasonPeriodAmountMerchant, d.Reason)
		assert.Same(t, periodMatch, d.Existing)
	})
}

func TestClassify_SpecScenarios(t *testing.T) {
	// The four canonical ingestion scenarios.
	t.Run("second identical bill is blocked as unpaid duplicate", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().Build()
		d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.NoError(t, err)
		assert.Equal(t, reconciliation.BlockDuplicateOfUnpaid, d.Kind)
	})

	t.Run("real bill replaces stored cancellation placeholder", func(t *testing.T) {
		repo := &memoryBillRepo{}
		placeholder := fixtures.NewBillBuilder(t).
			WithBillingPeriod(epsPeriod).
			AsCancellation().
			Build()
		repo.add(placeholder)
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().Build()
		d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.NoError(t, err)
		assert.Equal(t, reconciliation.ReplaceExisting, d.Kind)
		assert.Same(t, placeholder, d.Existing)
	})

	t.Run("cancellation of a paid bill is surfaced", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).
			WithBillingPeriod(epsPeriod).
			WithStatus(bill.StatusPaid).
			Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().AsCancellation().Build()
		d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.NoError(t, err)
		assert.Equal(t, reconciliation.BlockCancellationOfPaid, d.Kind,
			"paid precedence must win over suppression")
	})

	t.Run("nothing matches anywhere", func(t *testing.T) {
		repo := &memoryBillRepo{}
		repo.add(fixtures.NewBillBuilder(t).
			WithMerchant("JKP Infostan").
			WithAmount("2300.00").
			WithBillingPeriod("2025-09-01_2025-10-01").
			WithInvoiceNumber("XX-1").
			Build())
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().WithInvoiceNumber("RN-42").Build()
		d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.NoError(t, err)
		assert.Equal(t, reconciliation.NoDuplicate, d.Kind)
	})
}

func TestClassify_UnmatchableBill(t *testing.T) {
	repo := &memoryBillRepo{}
	repo.add(fixtures.NewBillBuilder(t).Build())
	svc := newClassifier(repo)

	// No comparable merchant, invoice number, or account id: classification
	// must not error, it simply finds nothing.
	incoming := &bill.Bill{
		MerchantName: "---",
		Date:         time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:  values.MustNewMoneyFromString("4521.36", "RSD"),
	}

	d, err := svc.Classify(context.Background(), incoming, values.BillingPeriod{})
	require.NoError(t, err)
	assert.Equal(t, reconciliation.NoDuplicate, d.Kind)
}

func TestClassify_ExcludesSelfWhenUpdating(t *testing.T) {
	repo := &memoryBillRepo{}
	stored := fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).Build()
	repo.add(stored)
	svc := newClassifier(repo)

	// Re-classifying the stored bill itself (an update) must not report it
	// as its own duplicate.
	d, err := svc.Classify(context.Background(), stored, mustPeriod(t, epsPeriod))
	require.NoError(t, err)
	assert.Equal(t, reconciliation.NoDuplicate, d.Kind)
}

func TestClassify_StorageErrorPropagates(t *testing.T) {
	t.Run("period pass failure", func(t *testing.T) {
		repo := &memoryBillRepo{
			findPeriodErr: domainerrors.NewStorageError("query", assert.AnError),
		}
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().Build()
		_, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
		require.Error(t, err)
		assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeStorage))
		assert.True(t, domainerrors.IsRetryable(err))
	})

	t.Run("window pass failure", func(t *testing.T) {
		repo := &memoryBillRepo{
			findRangeErr: domainerrors.NewStorageError("query", assert.AnError),
		}
		svc := newClassifier(repo)

		incoming := fixtures.NewBillBuilder(t).Unpersisted().WithInvoiceNumber("RN-42").Build()
		_, err := svc.Classify(context.Background(), incoming, values.BillingPeriod{})
		require.Error(t, err)
		assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeStorage))
	})
}

func TestClassify_OldestMatchChosenForReplacement(t *testing.T) {
	repo := &memoryBillRepo{}
	older := fixtures.NewBillBuilder(t).
		WithBillingPeriod(epsPeriod).
		AsCancellation().
		WithCreatedAt(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)).
		Build()
	newer := fixtures.NewBillBuilder(t).
		WithBillingPeriod(epsPeriod).
		AsCancellation().
		WithCreatedAt(time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)).
		Build()
	repo.add(newer, older)
	svc := newClassifier(repo)

	incoming := fixtures.NewBillBuilder(t).Unpersisted().Build()
	d, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
	require.NoError(t, err)
	assert.Equal(t, reconciliation.ReplaceExisting, d.Kind)
	assert.Same(t, older, d.Existing, "candidates are evaluated oldest first")
}

func TestClassify_RecordsMetrics(t *testing.T) {
	repo := &memoryBillRepo{}
	repo.add(fixtures.NewBillBuilder(t).WithBillingPeriod(epsPeriod).Build())
	metrics := newRecordingMetrics()
	svc := reconciliation.NewService(repo, nil, metrics)

	incoming := fixtures.NewBillBuilder(t).Unpersisted().Build()
	_, err := svc.Classify(context.Background(), incoming, mustPeriod(t, epsPeriod))
	require.NoError(t, err)

	fresh := fixtures.NewBillBuilder(t).Unpersisted().WithMerchant("JKP Infostan").WithAmount("1.00").Build()
	_, err = svc.Classify(context.Background(), fresh, values.BillingPeriod{})
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.count(reconciliation.BlockDuplicateOfUnpaid))
	assert.Equal(t, 1, metrics.count(reconciliation.NoDuplicate))
}
