package report

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/storage/archive"
)

// Document is the archived form of a result
type Document struct {
	RunID                string          `json:"run_id"`
	Instrument           string          `json:"instrument"`
	Horizon              int             `json:"horizon"`
	BuyThreshold         float64         `json:"buy_threshold"`
	SellThreshold        float64         `json:"sell_threshold"`
	SellRule             string          `json:"sell_rule"`
	EntryPriceBasis      string          `json:"entry_price_basis"`
	TransactionCosts     bool            `json:"transaction_costs"`
	Margin               bool            `json:"margin"`
	Leverage             int             `json:"leverage,omitempty"`
	StartingCapital      float64         `json:"starting_capital"`
	BuyingPower          float64         `json:"buying_power"`
	Borrowed             float64         `json:"borrowed,omitempty"`
	EndingCapital        float64         `json:"ending_capital"`
	NetCapital           float64         `json:"net_capital"`
	ROIPercent           float64         `json:"roi_percent"`
	TotalTransactionCost float64         `json:"total_transaction_cost"`
	OpenShares           float64         `json:"open_shares,omitempty"`
	OpenValue            float64         `json:"open_value,omitempty"`
	Stats                backtest.Stats  `json:"stats"`
	Trades               []DocumentTrade `json:"trades"`
}

// DocumentTrade is one fill in a Document
type DocumentTrade struct {
	Side            string    `json:"side"`
	BarIndex        int       `json:"bar_index"`
	Time            time.Time `json:"time"`
	Price           float64   `json:"price"`
	Shares          float64   `json:"shares"`
	CashAfter       float64   `json:"cash_after"`
	TransactionCost float64   `json:"transaction_cost"`
	Forced          bool      `json:"forced,omitempty"`
}

// NewDocument converts r for archiving under runID.
func NewDocument(runID string, r *backtest.Result) Document {
	o := r.Params.Options
	doc := Document{
		RunID:                runID,
		Instrument:           r.Instrument,
		Horizon:              r.Horizon,
		BuyThreshold:         r.Params.BuyThreshold,
		SellThreshold:        r.Params.SellThreshold,
		SellRule:             string(o.SellRule),
		EntryPriceBasis:      string(o.EntryPriceBasis),
		TransactionCosts:     o.UseTransactionCosts,
		Margin:               o.UseMargin,
		StartingCapital:      r.StartingCapital,
		BuyingPower:          r.BuyingPower,
		Borrowed:             r.Borrowed,
		EndingCapital:        r.EndingCapital,
		NetCapital:           r.NetCapital(),
		ROIPercent:           r.ROIPercent,
		TotalTransactionCost: r.TotalTransactionCost,
		OpenShares:           r.OpenShares,
		OpenValue:            r.OpenValue,
		Stats:                r.Stats,
		Trades:               make([]DocumentTrade, 0, len(r.Trades)),
	}
	if o.UseMargin {
		doc.Leverage = o.Leverage
	}
	for _, t := range r.Trades {
		doc.Trades = append(doc.Trades, DocumentTrade{
			Side:            string(t.Side),
			BarIndex:        t.BarIndex,
			Time:            t.Time.UTC(),
			Price:           t.Price,
			Shares:          t.Shares,
			CashAfter:       t.CashAfter,
			TransactionCost: t.TransactionCost,
			Forced:          t.Forced,
		})
	}
	return doc
}

// JSON archives each result as <Prefix>/<run id>.json.
type JSON struct {
	Store  archive.Storage
	Prefix string

	// NewID generates run ids; uuid.NewString when nil.
	NewID func() string
}

func (j JSON) Report(ctx context.Context, r *backtest.Result) error {
	_, err := j.Save(ctx, r)
	return err
}

// Save archives r and returns the path it was written to.
func (j JSON) Save(ctx context.Context, r *backtest.Result) (string, error) {
	newID := j.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	id := newID()

	data, err := json.MarshalIndent(NewDocument(id, r), "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}

	p := path.Join(j.Prefix, id+".json")
	if err := j.Store.Write(ctx, p, data); err != nil {
		return "", err
	}
	return p, nil
}
