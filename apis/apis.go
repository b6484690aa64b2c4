package apis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

const (
	DefaultRareLimit = 100
	MaxRareLimit     = 1000
)

var log = logrus.WithField("component", "apis")

var badRequest = []error{
	ord.ErrInvalidOrdinal,
	ord.ErrInvalidName,
	ord.ErrInvalidDegree,
	ord.ErrInvalidDecimal,
	ord.ErrInvalidPercentile,
	ord.ErrInvalidRarity,
	ord.ErrInvalidOutPoint,
	ord.ErrInvalidSatPoint,
	ord.ErrConfiguration,
}

func statusOf(err error) int {
	if errors.Is(err, index.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func respondError[T any](c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Query failed")
	}
	errStr := err.Error()
	c.JSON(status, Response[T]{Error: &errStr})
}

func respond[T any](c *gin.Context, result T) {
	c.JSON(http.StatusOK, Response[T]{Result: &result})
}

func GetOrdinal(c *gin.Context, reader *index.Reader) {
	n, _, err := ord.Parse(c.Param("repr"))
	if err != nil {
		respondError[OrdinalResult](c, err)
		return
	}

	view, err := reader.View()
	if err != nil {
		respondError[OrdinalResult](c, err)
		return
	}
	defer view.Release()

	result := OrdinalResult{Traits: n.Traits()}
	if tip, ok := view.Tip(); ok {
		result.IndexedHeight = uint64(tip.Height)
	}
	sp, err := view.Locate(n)
	switch {
	case err == nil:
		encoded := sp.Encode()
		result.SatPoint = &encoded
	case !errors.Is(err, index.ErrNotFound):
		respondError[OrdinalResult](c, err)
		return
	}
	respond(c, result)
}

func GetConvert(c *gin.Context) {
	input := c.Param("repr")
	format, err := ord.ParseFormatName(c.DefaultQuery("format", ord.FormatInteger.String()))
	if err != nil {
		respondError[ConvertResult](c, err)
		return
	}
	output, err := ord.Convert(input, format)
	if err != nil {
		respondError[ConvertResult](c, err)
		return
	}
	respond(c, ConvertResult{Input: input, Format: format.String(), Output: output})
}

func GetOutput(c *gin.Context, reader *index.Reader) {
	op, err := ord.DecodeOutPoint(c.Param("outpoint"))
	if err != nil {
		respondError[OutputResult](c, err)
		return
	}

	view, err := reader.View()
	if err != nil {
		respondError[OutputResult](c, err)
		return
	}
	defer view.Release()

	ranges, live, err := view.Output(op)
	if err != nil {
		respondError[OutputResult](c, err)
		return
	}
	result := OutputResult{OutPoint: op.Encode(), Ranges: ranges}
	if !live {
		spent, err := view.History(op)
		if err != nil {
			respondError[OutputResult](c, err)
			return
		}
		height := uint64(spent.Height)
		result.Ranges, result.Spent, result.SpentHeight = spent.Ranges, true, &height
	}
	respond(c, result)
}

func GetRare(c *gin.Context, reader *index.Reader) {
	opts, limit, err := rareQuery(c)
	if err != nil {
		respondError[RareResult](c, err)
		return
	}

	view, err := reader.View()
	if err != nil {
		respondError[RareResult](c, err)
		return
	}
	defer view.Release()

	scan := view.RarityScan(opts)
	defer scan.Release()

	result := RareResult{Matches: []index.Match{}}
	for len(result.Matches) < limit && scan.Next() {
		result.Matches = append(result.Matches, scan.Match())
	}
	if err := scan.Err(); err != nil {
		respondError[RareResult](c, err)
		return
	}
	if len(result.Matches) == limit {
		if next, ok := scan.Cursor(); ok {
			encoded := next.Encode()
			result.Next = &encoded
		}
	}
	respond(c, result)
}

func rareQuery(c *gin.Context) (index.ScanOptions, int, error) {
	var opts index.ScanOptions
	class, err := ord.ParseRarity(c.Param("rarity"))
	if err != nil {
		return opts, 0, err
	}
	opts.Class = class

	for name, dst := range map[string]**ord.OutPoint{"from": &opts.From, "to": &opts.To} {
		if s := c.Query(name); s != "" {
			op, err := ord.DecodeOutPoint(s)
			if err != nil {
				return opts, 0, err
			}
			*dst = &op
		}
	}
	if s := c.Query("cursor"); s != "" {
		sp, err := ord.DecodeSatPoint(s)
		if err != nil {
			return opts, 0, err
		}
		opts.Cursor = &sp
	}

	limit := DefaultRareLimit
	if s := c.Query("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 || limit > MaxRareLimit {
			return opts, 0, fmt.Errorf("%w: limit must be in 1..%d, got %q", ord.ErrConfiguration, MaxRareLimit, s)
		}
	}
	return opts, limit, nil
}

func GetRange(c *gin.Context, reader *index.Reader) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 64)
	if err != nil {
		respondError[RangeResult](c, fmt.Errorf("%w: invalid height %q", ord.ErrConfiguration, c.Param("height")))
		return
	}
	h := ord.Height(height)
	minted, err := ord.MintedRange(h)
	if err != nil {
		respondError[RangeResult](c, err)
		return
	}

	view, err := reader.View()
	if err != nil {
		respondError[RangeResult](c, err)
		return
	}
	defer view.Release()

	result := RangeResult{Height: height, Subsidy: h.Subsidy(), Range: minted}
	hash, err := view.BlockHash(h)
	switch {
	case err == nil:
		encoded := hash.String()
		result.Hash = &encoded
	case !errors.Is(err, index.ErrNotFound):
		respondError[RangeResult](c, err)
		return
	}
	respond(c, result)
}

func GetBlockHeight(c *gin.Context, reader *index.Reader) {
	view, err := reader.View()
	if err != nil {
		respondError[BlockHeightResult](c, err)
		return
	}
	defer view.Release()

	tip, ok := view.Tip()
	if !ok {
		respondError[BlockHeightResult](c, index.ErrNotFound)
		return
	}
	respond(c, BlockHeightResult{Height: uint64(tip.Height), Hash: tip.Hash.String()})
}

func NewRouter(reader *index.Reader, enablePprof bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.HTTP, cors.Default())
	if enablePprof {
		pprof.Register(r)
	}

	r.GET("/v1/ordinal/:repr", func(c *gin.Context) {
		GetOrdinal(c, reader)
	})

	r.GET("/v1/convert/:repr", GetConvert)

	r.GET("/v1/output/:outpoint", func(c *gin.Context) {
		GetOutput(c, reader)
	})

	r.GET("/v1/rare/:rarity", func(c *gin.Context) {
		GetRare(c, reader)
	})

	r.GET("/v1/range/:height", func(c *gin.Context) {
		GetRange(c, reader)
	})

	r.GET("/v1/block_height", func(c *gin.Context) {
		GetBlockHeight(c, reader)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})

	return r
}

// StartService serves the API until ctx is done.
func StartService(ctx context.Context, reader *index.Reader, addr string, enablePprof, enableDebug bool) error {
	if !enableDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{Addr: addr, Handler: NewRouter(reader, enablePprof)}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Serving API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
