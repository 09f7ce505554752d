package currency

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sortdb/pkg/common"
	"sortdb/pkg/storage/recordfile"
	"strings"
	"sync"

	"github.com/google/btree"
)

// RecordSize is the on-disk size of one rate: a 10 byte DD/MM/YYYY date,
// a 4 byte NUL padded currency code, 2 bytes of padding and a
// little-endian float64.
const RecordSize = 24

const USD = "USD"

var ErrNoRate = errors.New("no exchange rate")

// Rate is the value of one unit of Currency in USD on Date.
type Rate struct {
	Currency string
	Date     common.Date
	Rate     float64
}

func EncodeRate(r Rate) ([]byte, error) {
	if len(r.Currency) == 0 || len(r.Currency) > 3 {
		return nil, fmt.Errorf("currency: bad code %q", r.Currency)
	}
	buf := make([]byte, RecordSize)
	copy(buf[0:10], r.Date.String())
	copy(buf[10:14], r.Currency)
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(r.Rate))
	return buf, nil
}

func DecodeRate(buf []byte) (Rate, error) {
	if len(buf) != RecordSize {
		return Rate{}, fmt.Errorf("%w: rate record of %d bytes", common.ErrAlloc, len(buf))
	}
	d, err := ParseDate(string(buf[0:10]))
	if err != nil {
		return Rate{}, err
	}
	code := buf[10:14]
	if i := strings.IndexByte(string(code), 0); i >= 0 {
		code = code[:i]
	}
	return Rate{
		Currency: string(code),
		Date:     d,
		Rate:     math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
	}, nil
}

// ParseDate parses the DD/MM/YYYY dates used by rate files.
func ParseDate(s string) (common.Date, error) {
	return common.ParseDate(strings.TrimRight(s, "\x00 "))
}

// DaysApart approximates the distance between two dates with 30 day months
// and 365 day years. It is only used to rank candidate rates and never
// decreases as b moves away from a.
func DaysApart(a, b common.Date) int {
	da := int(a.Year)*365 + int(a.Month)*30 + int(a.Day)
	db := int(b.Year)*365 + int(b.Month)*30 + int(b.Day)
	if da > db {
		return da - db
	}
	return db - da
}

// RoundToThirdDecimal rounds half away from zero at the third decimal.
func RoundToThirdDecimal(v float64) float64 {
	return math.Round(v*1000) / 1000
}

type rateItem struct {
	Rate
}

func (i rateItem) Less(than btree.Item) bool {
	o := than.(rateItem)
	if i.Currency != o.Currency {
		return i.Currency < o.Currency
	}
	return i.Date.Compare(o.Date) < 0
}

// RateCache holds exchange rates ordered by currency and date.
type RateCache struct {
	tree *btree.BTree
	lock sync.RWMutex
}

func NewRateCache(degree int) *RateCache {
	return &RateCache{
		tree: btree.New(degree),
	}
}

// Add stores r, replacing any rate for the same currency and date.
func (c *RateCache) Add(r Rate) error {
	if r.Rate <= 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
		return fmt.Errorf("currency: invalid rate %v for %s on %s", r.Rate, r.Currency, r.Date)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.tree.ReplaceOrInsert(rateItem{r})
	return nil
}

func (c *RateCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tree.Len()
}

// LoadFile adds every rate in a fixed-size rate file and returns how many
// were added. Records with a malformed date or rate are skipped.
func (c *RateCache) LoadFile(path string) (int, error) {
	r, err := recordfile.Open(path, RecordSize)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	buf := make([]byte, RecordSize)
	added := 0
	for index := 0; ; index++ {
		err := r.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, err
		}
		rate, err := DecodeRate(buf)
		if err == nil {
			err = c.Add(rate)
		}
		if err != nil {
			log.Printf("[Currency] Warning: skipping rate record %d in %s: %v", index, path, err)
			continue
		}
		added++
	}
	return added, nil
}

// Nearest returns the rate for currency on date, or failing that the rate
// whose date is closest by DaysApart. Ties go to the earlier date.
func (c *RateCache) Nearest(currency string, date common.Date) (Rate, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	pivot := rateItem{Rate{Currency: currency, Date: date}}

	var after, before *Rate
	c.tree.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		if r := i.(rateItem).Rate; r.Currency == currency {
			after = &r
		}
		return false
	})
	if after != nil && after.Date == date {
		return *after, nil
	}
	c.tree.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		if r := i.(rateItem).Rate; r.Currency == currency {
			before = &r
		}
		return false
	})

	switch {
	case before == nil && after == nil:
		return Rate{}, fmt.Errorf("%w for %s", ErrNoRate, currency)
	case after == nil:
		return *before, nil
	case before == nil:
		return *after, nil
	case DaysApart(before.Date, date) <= DaysApart(after.Date, date):
		return *before, nil
	default:
		return *after, nil
	}
}

// Convert turns amount in currency into USD at the rate nearest to date,
// rounded to three decimals. USD amounts are only rounded.
func (c *RateCache) Convert(amount float64, currency string, date common.Date) (float64, error) {
	if currency == USD {
		return RoundToThirdDecimal(amount), nil
	}
	r, err := c.Nearest(currency, date)
	if err != nil {
		return 0, err
	}
	return RoundToThirdDecimal(amount * r.Rate), nil
}
