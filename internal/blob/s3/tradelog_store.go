package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// tradeLogPrefix is the key prefix for daily trade log blobs. Each day is one
// object:
//
//	tradelogs/2026-08-29.json
const tradeLogPrefix = "tradelogs/"

// multipartThreshold is the payload size above which Save switches from a
// single PutObject to a multipart upload.
const multipartThreshold = minPartSize

// TradeLogStore implements domain.TradeLogStore on top of an S3-compatible
// bucket. A day's log is stored as one JSON blob and rewritten in full on
// every Save.
type TradeLogStore struct {
	writer *Writer
	reader *Reader
}

// NewTradeLogStore creates a TradeLogStore backed by the given client's
// bucket.
func NewTradeLogStore(c *Client) *TradeLogStore {
	return &TradeLogStore{
		writer: NewWriter(c),
		reader: NewReader(c),
	}
}

// Save uploads the whole daily log, overwriting any existing blob for the
// same date. Payloads above the S3 minimum part size go through the multipart
// uploader.
func (s *TradeLogStore) Save(ctx context.Context, log domain.TradeLog) error {
	if _, err := time.Parse("2006-01-02", log.Date); err != nil {
		return fmt.Errorf("s3blob: save trade log: %w: date %q", domain.ErrInvalidParams, log.Date)
	}
	log.SavedAt = time.Now().UTC()

	buf, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("s3blob: save trade log %s: marshal: %w", log.Date, err)
	}

	key := tradeLogKey(log.Date)
	if int64(len(buf)) >= multipartThreshold {
		if err := s.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: save trade log %s: %w", log.Date, err)
		}
		return nil
	}

	if err := s.writer.Put(ctx, key, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: save trade log %s: %w", log.Date, err)
	}
	return nil
}

// Load retrieves the log for the given YYYY-MM-DD date. Returns
// domain.ErrNotFound if no log exists for that day.
func (s *TradeLogStore) Load(ctx context.Context, date string) (domain.TradeLog, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.TradeLog{}, fmt.Errorf("s3blob: load trade log: %w: date %q", domain.ErrInvalidParams, date)
	}

	body, err := s.reader.Get(ctx, tradeLogKey(date))
	if err != nil {
		return domain.TradeLog{}, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return domain.TradeLog{}, fmt.Errorf("s3blob: load trade log %s: read: %w", date, err)
	}

	var log domain.TradeLog
	if err := json.Unmarshal(raw, &log); err != nil {
		return domain.TradeLog{}, fmt.Errorf("s3blob: load trade log %s: decode: %w", date, err)
	}
	if log.Date == "" {
		log.Date = date
	}
	return log, nil
}

// ListDates returns every date that has a stored log, newest first.
func (s *TradeLogStore) ListDates(ctx context.Context) ([]string, error) {
	infos, err := s.reader.List(ctx, tradeLogPrefix)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimSuffix(path.Base(info.Path), ".json")
		if _, err := time.Parse("2006-01-02", name); err != nil {
			continue
		}
		dates = append(dates, name)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func tradeLogKey(date string) string {
	return tradeLogPrefix + date + ".json"
}
