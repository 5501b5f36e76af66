// Package source loads the company, interaction and study collections a report run
// works from.
package source

import (
	"bytes"
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/mediumroast/mrcli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collection file paths, relative to the repository or directory root.
const (
	CompaniesPath    = "Companies/Companies.json"
	InteractionsPath = "Interactions/Interactions.json"
	StudiesPath      = "Studies/Studies.json"
)

// Load fetches all three collections concurrently.
func Load(ctx context.Context, src schemas.EntitySource) (*schemas.Collections, error) {
	var c schemas.Collections
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Companies, err = src.Companies(gctx)
		return err
	})
	g.Go(func() (err error) {
		c.Interactions, err = src.Interactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		c.Studies, err = src.Studies(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

// decodeCollection decodes a JSON array. Empty documents decode to an empty collection.
func decodeCollection[T any](data []byte, what string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", schemas.ErrMalformedInput, what, err)
	}
	return out, nil
}
