package translate

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/rowmap"
)

var hebrewPattern = regexp.MustCompile(`[א-ת]`)

// Remote is the translation call the cache falls back to on a miss.
type Remote interface {
	Translate(text string) (string, error)
}

// RowQueue receives newly translated dictionary entries for persistence.
type RowQueue interface {
	Enqueue(row rowmap.Row, table string) error
}

// Cache translates row values through the warehouse dictionary, calling the
// remote service only for unseen text. The dictionary is loaded lazily on
// the first Hebrew value of the run and grows for the run's duration; the
// dictionary table stays the durable copy.
type Cache struct {
	store  dwh.Store
	remote Remote
	queue  RowQueue
	log    zerolog.Logger

	dict   map[string]string
	loaded bool
}

func NewCache(store dwh.Store, remote Remote, queue RowQueue, log zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		remote: remote,
		queue:  queue,
		log:    log,
		dict:   make(map[string]string),
	}
}

// TranslateRow returns a copy of row with every Hebrew text value replaced
// by its English translation. Other values pass through unchanged.
func (c *Cache) TranslateRow(row rowmap.Row) (rowmap.Row, error) {
	translated := make(rowmap.Row, len(row))
	for key, value := range row {
		if value.Kind != rowmap.KindText || !hebrewPattern.MatchString(value.Text) {
			translated[key] = value
			continue
		}
		english, err := c.lookup(value.Text)
		if err != nil {
			return nil, err
		}
		translated[key] = rowmap.Text(english)
	}
	return translated, nil
}

func (c *Cache) lookup(hebrew string) (string, error) {
	if !c.loaded {
		if err := c.load(); err != nil {
			return "", err
		}
	}
	if english, ok := c.dict[hebrew]; ok {
		return english, nil
	}

	english, err := c.remote.Translate(hebrew)
	if err != nil {
		return "", err
	}
	c.dict[hebrew] = english

	entry := rowmap.Row{
		"he": rowmap.Text(hebrew),
		"en": rowmap.Text(english),
	}
	if err := c.queue.Enqueue(entry, "dictionary"); err != nil {
		return "", err
	}
	c.log.Debug().
		Str("he", hebrew).
		Str("en", english).
		Msg("New word added to dictionary")
	return english, nil
}

func (c *Cache) load() error {
	result, err := c.store.FetchRows("SELECT he, en FROM dictionary")
	if err != nil {
		return fmt.Errorf("failed to load dictionary: %w", err)
	}
	for _, row := range result.Rows {
		c.dict[row.Get("he").Text] = row.Get("en").Text
	}
	c.loaded = true
	c.log.Debug().
		Int("entries", len(c.dict)).
		Msg("Dictionary loaded")
	return nil
}
