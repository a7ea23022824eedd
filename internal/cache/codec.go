package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/parquet-go/parquet-go"

	"stocktui/internal/domain"
)

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

type jsonEntry[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// JSONCodec stores an entry as {"value":...,"fetched_at":...}.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(e Entry[T]) ([]byte, error) {
	return json.Marshal(jsonEntry[T]{Value: e.Value, FetchedAt: e.FetchedAt})
}

func (JSONCodec[T]) Unmarshal(data []byte) (Entry[T], error) {
	var je jsonEntry[T]
	if err := json.Unmarshal(data, &je); err != nil {
		return Entry[T]{}, err
	}
	if je.FetchedAt.IsZero() {
		return Entry[T]{}, errors.New("missing fetched_at")
	}
	return Entry[T]{Value: je.Value, FetchedAt: je.FetchedAt}, nil
}

// ---------------------------------------------------------------------------
// Parquet (historical series)
// ---------------------------------------------------------------------------

// HistoryRecord is the parquet row schema of a cached series. fetched_at is
// repeated on every row.
type HistoryRecord struct {
	Timestamp int64   `parquet:"timestamp"` // unix seconds
	Close     float64 `parquet:"close"`
	FetchedAt int64   `parquet:"fetched_at,timestamp(millisecond)"` // unix ms
}

// HistoryCodec stores a HistoricalSeries as a parquet file. The symbol is
// implied by the file name and restored by the caller.
type HistoryCodec struct{}

var errEmptySeries = errors.New("empty series")

func (HistoryCodec) Marshal(e Entry[domain.HistoricalSeries]) ([]byte, error) {
	s := e.Value
	if len(s.Closes) == 0 || len(s.Closes) != len(s.Timestamps) {
		return nil, errEmptySeries
	}
	records := make([]HistoryRecord, len(s.Closes))
	fetched := e.FetchedAt.UnixMilli()
	for i := range s.Closes {
		records[i] = HistoryRecord{Timestamp: s.Timestamps[i], Close: s.Closes[i], FetchedAt: fetched}
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (HistoryCodec) Unmarshal(data []byte) (Entry[domain.HistoricalSeries], error) {
	records, err := parquet.Read[HistoryRecord](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Entry[domain.HistoricalSeries]{}, err
	}
	if len(records) == 0 {
		return Entry[domain.HistoricalSeries]{}, errEmptySeries
	}
	s := domain.HistoricalSeries{
		Timestamps: make([]int64, len(records)),
		Closes:     make([]float64, len(records)),
	}
	for i, r := range records {
		s.Timestamps[i] = r.Timestamp
		s.Closes[i] = r.Close
	}
	return Entry[domain.HistoricalSeries]{
		Value:     s,
		FetchedAt: time.UnixMilli(records[0].FetchedAt),
	}, nil
}
