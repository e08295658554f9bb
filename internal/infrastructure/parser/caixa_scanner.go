package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/scanner"
)

// Requester is the subset of httpclient.Client the scanner needs.
type Requester interface {
	Execute(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// CaixaOptions locates the source endpoints and per-call request settings.
type CaixaOptions struct {
	BaseURL       string
	SearchPath    string
	ListPath      string
	DetailPath    string
	Rooms         string
	Timeout       time.Duration
	DetailTimeout time.Duration
	VerifySearch  bool
	VerifyList    bool
	VerifyDetail  bool
	Location      *time.Location
}

// CaixaScanner talks to the Caixa property-sale site: a search page that
// lists hidden IDs, a batch list page and one detail page per listing.
type CaixaScanner struct {
	client Requester
	opts   CaixaOptions
	logger *slog.Logger
}

var _ scanner.Scanner = (*CaixaScanner)(nil)

// NewCaixaScanner wires a request client; zero timeouts default to 60s/30s.
func NewCaixaScanner(client Requester, opts CaixaOptions, logger *slog.Logger) *CaixaScanner {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &CaixaScanner{client: client, opts: opts, logger: logger}
}

// Name identifies the strategy inside the registry.
func (c *CaixaScanner) Name() string {
	return "caixa"
}

func (c *CaixaScanner) searchURL() string { return c.opts.BaseURL + c.opts.SearchPath }
func (c *CaixaScanner) listURL() string   { return c.opts.BaseURL + c.opts.ListPath }
func (c *CaixaScanner) detailURL() string { return c.opts.BaseURL + c.opts.DetailPath }

// DiscoverIDs runs the region search and returns the sorted unique IDs.
func (c *CaixaScanner) DiscoverIDs(ctx context.Context, req scanner.Request) ([]string, error) {
	form := url.Values{}
	form.Set("hdn_estado", req.Region)
	form.Set("hdn_cidade", "")
	form.Set("hdn_quartos", c.opts.Rooms)
	form.Set("hdn_tp_venda", req.Category.Code)

	doc, err := c.fetchDocument(ctx, httpclient.Request{
		Method:             http.MethodPost,
		URL:                c.searchURL(),
		Form:               form,
		Timeout:            c.opts.Timeout,
		InsecureSkipVerify: !c.opts.VerifySearch,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s/%s: %w", req.Region, req.Category.Code, err)
	}

	ids := parseSearchIDs(doc)
	c.debug("search parsed", "region", req.Region, "category", req.Category.Code, "ids", len(ids))
	return ids, nil
}

// FetchBatch loads the list page for a chunk of IDs.
func (c *CaixaScanner) FetchBatch(ctx context.Context, req scanner.Request, ids []string) ([]scanner.Entry, error) {
	form := url.Values{}
	form.Set("hdnImov", strings.Join(ids, idDelimiter))

	doc, err := c.fetchDocument(ctx, httpclient.Request{
		Method:             http.MethodPost,
		URL:                c.listURL(),
		Form:               form,
		Header:             http.Header{"Referer": {c.searchURL()}},
		Timeout:            c.opts.Timeout,
		InsecureSkipVerify: !c.opts.VerifyList,
	})
	if err != nil {
		return nil, fmt.Errorf("list batch of %d: %w", len(ids), err)
	}

	entries := parseListEntries(doc, c.opts.BaseURL)
	c.debug("batch parsed", "region", req.Region, "ids", len(ids), "entries", len(entries))
	return entries, nil
}

// FetchDetail loads and extracts one listing's detail page.
func (c *CaixaScanner) FetchDetail(ctx context.Context, req scanner.Request, item scanner.ListItem) (domain.Listing, error) {
	form := url.Values{}
	form.Set("hdnImovel", item.NumericID)

	doc, err := c.fetchDocument(ctx, httpclient.Request{
		Method:             http.MethodPost,
		URL:                c.detailURL(),
		Form:               form,
		Timeout:            c.opts.DetailTimeout,
		InsecureSkipVerify: !c.opts.VerifyDetail,
	})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("detail %s: %w", item.Number, err)
	}

	listing, warnings, err := parseDetail(doc, item, req.Category, c.opts.BaseURL, c.detailURL(), c.opts.Location)
	if err != nil {
		return domain.Listing{}, err
	}
	for _, w := range warnings {
		if c.logger != nil {
			c.logger.Warn("malformed field", "number", item.Number, "error", w)
		}
	}
	return listing, nil
}

func (c *CaixaScanner) fetchDocument(ctx context.Context, req httpclient.Request) (*goquery.Document, error) {
	resp, err := c.client.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Reader())
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (c *CaixaScanner) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
