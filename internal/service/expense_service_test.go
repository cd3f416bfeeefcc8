package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vytraty/internal/core"
	"vytraty/internal/events"
	"vytraty/internal/rates"
	"vytraty/internal/storage"
)

const tgID int64 = 111

type capturingPublisher struct {
	published []*events.ExpenseEvent
	fail      bool
}

func (p *capturingPublisher) PublishExpenseEvent(_ context.Context, ev *events.ExpenseEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, ev)
	return nil
}

func fixedRate(rate string) rates.Source {
	return rates.SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString(rate), nil
	})
}

func noRate() rates.Source {
	return rates.SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.Decimal{}, rates.ErrUnavailable
	})
}

func newService(t *testing.T, src rates.Source, pub Publisher) *ExpenseService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	_, err = repo.EnsureUser(context.Background(), tgID, "alice")
	require.NoError(t, err)

	return New(repo, src, pub)
}

func day(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddExpenseWithRate(t *testing.T) {
	pub := &capturingPublisher{}
	svc := newService(t, fixedRate("41.35"), pub)

	e, err := svc.AddExpense(context.Background(), tgID, "Інтернет", day("19.03.2025"), decimal.RequireFromString("1369"))
	require.NoError(t, err)

	require.NotNil(t, e.USD)
	assert.Equal(t, "33.11", e.USD.String(), "usd = round(1369/41.35, 2)")

	require.Len(t, pub.published, 1)
	assert.Equal(t, events.TypeCreated, pub.published[0].Type)
	assert.Equal(t, "33.11", pub.published[0].USD)
}

func TestAddExpenseRateUnavailable(t *testing.T) {
	svc := newService(t, noRate(), nil)

	e, err := svc.AddExpense(context.Background(), tgID, "Кава", day("19.03.2025"), decimal.NewFromInt(85))
	require.NoError(t, err, "rate failures must not fail the flow")
	assert.Nil(t, e.USD)

	got, found, err := svc.FindExpense(context.Background(), tgID, e.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, got.USD, "absence must be persisted, not zero")
}

func TestAddExpensePublishFailureTolerated(t *testing.T) {
	pub := &capturingPublisher{fail: true}
	svc := newService(t, noRate(), pub)

	e, err := svc.AddExpense(context.Background(), tgID, "Кава", day("19.03.2025"), decimal.NewFromInt(85))
	require.NoError(t, err, "a dead broker must not fail the user's operation")

	_, found, err := svc.FindExpense(context.Background(), tgID, e.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestReportScenarioRanges(t *testing.T) {
	svc := newService(t, noRate(), nil)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, tgID, "Січень", day("01.01.2025"), decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, tgID, "Лютий", day("15.02.2025"), decimal.NewFromInt(200))
	require.NoError(t, err)

	january, err := core.ParseRange("01.01.2025", "31.01.2025")
	require.NoError(t, err)
	res, err := svc.Report(ctx, tgID, &january)
	require.NoError(t, err)
	require.True(t, res.IsFile(), "january range has one expense")

	march, err := core.ParseRange("01.03.2025", "31.03.2025")
	require.NoError(t, err)
	res, err = svc.Report(ctx, tgID, &march)
	require.NoError(t, err)
	assert.False(t, res.IsFile(), "empty range must yield the message variant")
	assert.Equal(t, "Витрати за вказаний період не знайдено.", res.Message)
}

func TestReportNoExpensesAtAll(t *testing.T) {
	svc := newService(t, noRate(), nil)

	res, err := svc.Report(context.Background(), tgID, nil)
	require.NoError(t, err)
	assert.False(t, res.IsFile())
	assert.Equal(t, "У вас поки немає витрат.", res.Message)
}

func TestDeleteExpensePublishesSnapshot(t *testing.T) {
	pub := &capturingPublisher{}
	svc := newService(t, noRate(), pub)
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, tgID, "Таксі", day("05.05.2025"), decimal.NewFromInt(250))
	require.NoError(t, err)

	ok, err := svc.DeleteExpense(ctx, tgID, e.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, pub.published, 2) // created + deleted
	deleted := pub.published[1]
	assert.Equal(t, events.TypeDeleted, deleted.Type)
	assert.Equal(t, "Таксі", deleted.Name)
}

func TestDeleteUnknownID(t *testing.T) {
	pub := &capturingPublisher{}
	svc := newService(t, noRate(), pub)

	ok, err := svc.DeleteExpense(context.Background(), tgID, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pub.published, "nothing deleted, nothing published")
}

func TestUpdateExpenseRecomputesUSD(t *testing.T) {
	svc := newService(t, fixedRate("40"), nil)
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, tgID, "старе", day("01.02.2025"), decimal.NewFromInt(80))
	require.NoError(t, err)

	ok, err := svc.UpdateExpense(ctx, tgID, e.ID, "нове", decimal.NewFromInt(120))
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := svc.FindExpense(ctx, tgID, e.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "нове", got.Name)
	assert.True(t, got.UAH.Equal(decimal.NewFromInt(120)))
	require.NotNil(t, got.USD)
	assert.Equal(t, "3", got.USD.String())
}

func TestUpdateUnknownID(t *testing.T) {
	svc := newService(t, noRate(), nil)

	ok, err := svc.UpdateExpense(context.Background(), tgID, 9999, "x", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}
