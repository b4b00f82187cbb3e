package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/httpclient"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
)

// BSE rejects requests without browser-like identity headers.
const bseUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BSEStrategy ingests narrative filings for Indian entities from the
// BSE corporate announcements feed. Filing PDFs are archived as
// artifacts; the narrative document is a digest of the filing metadata
// over the lookback window.
type BSEStrategy struct {
	config    *common.BSEConfig
	client    *httpclient.Client
	artifacts interfaces.ArtifactStorage
	logger    arbor.ILogger
}

// NewBSEStrategy creates the Indian narrative strategy.
func NewBSEStrategy(config *common.BSEConfig, artifacts interfaces.ArtifactStorage, logger arbor.ILogger) *BSEStrategy {
	return &BSEStrategy{
		config: config,
		client: httpclient.New(
			httpclient.WithUserAgent(bseUserAgent),
			httpclient.WithHeader("Accept", "application/json, text/plain, */*"),
			httpclient.WithHeader("Referer", "https://www.bseindia.com/"),
			httpclient.WithHeader("Origin", "https://www.bseindia.com"),
			httpclient.WithRateLimit(1),
			httpclient.WithLogger(logger),
		),
		artifacts: artifacts,
		logger:    logger,
	}
}

func (s *BSEStrategy) Jurisdiction() models.Jurisdiction {
	return models.JurisdictionIndia
}

// bseRow is one announcement in the BSE feed.
type bseRow struct {
	AttachmentName string `json:"ATTACHMENTNAME"`
	Subject        string `json:"NEWSSUB"`
	NewsDate       string `json:"NEWS_DT"`
	Old            int    `json:"OLD"`
}

type bseResponse struct {
	Table  []bseRow `json:"Table"`
	Table1 []bseRow `json:"Table1"`
}

// filing is an announcement with a PDF attachment.
type filing struct {
	URL      string
	Subject  string
	Date     string
	Filename string
	Pages    int
}

// dateWindow is one bounded metadata query window. The feed caps how
// far a single query may span, so the lookback is covered in chunks.
type dateWindow struct {
	from time.Time
	to   time.Time
}

// FetchNarrative queries the announcements feed over the lookback
// window, archives new filing PDFs and returns a digest of the filing
// metadata. Individual window or download failures are logged and
// skipped; the digest covers whatever the feed returned.
func (s *BSEStrategy) FetchNarrative(ctx context.Context, entity *models.Entity) (*interfaces.RawNarrative, error) {
	scrip := strings.TrimSpace(entity.ScripCode)
	if scrip == "" {
		return nil, fmt.Errorf("entity %s has no scrip code", entity.Ticker)
	}

	var filings []filing
	for _, window := range s.windows(time.Now()) {
		rows, err := s.fetchWindow(ctx, scrip, window)
		if err != nil {
			s.logger.Warn().
				Str("ticker", entity.Ticker).
				Str("from", window.from.Format("2006-01-02")).
				Str("to", window.to.Format("2006-01-02")).
				Err(err).
				Msg("Announcement window query failed, skipping")
			continue
		}

		for _, row := range rows {
			if f, ok := s.toFiling(row); ok {
				filings = append(filings, f)
			}
		}
	}

	s.logger.Info().
		Str("ticker", entity.Ticker).
		Int("filings", len(filings)).
		Msg("BSE filings discovered")

	archived := s.archiveFilings(ctx, entity, filings)

	return &interfaces.RawNarrative{
		Ticker:      entity.Ticker,
		Source:      "bse_india",
		FilingType:  "announcements",
		FilingDate:  latestFilingDate(archived),
		Text:        digest(entity, archived),
		DataVersion: models.DataVersionNarrative,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// windows splits the lookback into feed-sized query windows, oldest
// first. Consecutive windows do not overlap.
func (s *BSEStrategy) windows(now time.Time) []dateWindow {
	historyDays := s.config.HistoryDays
	if historyDays <= 0 {
		historyDays = 365
	}
	windowDays := s.config.WindowDays
	if windowDays <= 0 {
		windowDays = 90
	}

	var out []dateWindow
	start := now.AddDate(0, 0, -historyDays)
	for start.Before(now) {
		end := start.AddDate(0, 0, windowDays)
		if end.After(now) {
			end = now
		}
		out = append(out, dateWindow{from: start, to: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}

func (s *BSEStrategy) fetchWindow(ctx context.Context, scrip string, window dateWindow) ([]bseRow, error) {
	params := url.Values{}
	params.Set("pageno", "1")
	params.Set("strCat", "-1")
	params.Set("strPrevDate", window.from.Format("20060102"))
	params.Set("strScrip", scrip)
	params.Set("strSearch", "P")
	params.Set("strToDate", window.to.Format("20060102"))
	params.Set("strType", "C")
	params.Set("subcategory", "-1")

	var response bseResponse
	if err := s.client.GetJSON(ctx, s.config.AnnouncementsURL+"?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	if len(response.Table) > 0 {
		return response.Table, nil
	}
	return response.Table1, nil
}

// toFiling converts an announcement row into a filing when it carries
// a PDF attachment. Older attachments live under the archive path.
func (s *BSEStrategy) toFiling(row bseRow) (filing, bool) {
	name := strings.TrimSpace(row.AttachmentName)
	if name == "" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return filing{}, false
	}

	base := s.config.PDFBaseURL
	if row.Old == 1 {
		base = s.config.ArchivePDFURL
	}

	subject := row.Subject
	if subject == "" {
		subject = "Document"
	}
	date := row.NewsDate
	if date == "" {
		date = "UnknownDate"
	}

	return filing{
		URL:      base + name,
		Subject:  subject,
		Date:     strings.SplitN(date, "T", 2)[0],
		Filename: fmt.Sprintf("%s_%s.pdf", strings.SplitN(date, "T", 2)[0], safeName(subject)),
	}, true
}

// archiveFilings downloads and stores filings not already archived.
// A filing whose name is already present is assumed unchanged; the
// feed publishes revisions under new attachment names. Download and
// validation failures drop the filing from the digest.
func (s *BSEStrategy) archiveFilings(ctx context.Context, entity *models.Entity, filings []filing) []filing {
	var kept []filing
	downloaded := 0

	for _, f := range filings {
		exists, err := s.artifacts.Exists(ctx, entity.Ticker, f.Filename)
		if err != nil {
			s.logger.Warn().Str("filename", f.Filename).Err(err).Msg("Artifact lookup failed")
			continue
		}
		if exists {
			kept = append(kept, f)
			continue
		}

		data, err := s.client.Get(ctx, f.URL)
		if err != nil {
			s.logger.Warn().
				Str("filename", f.Filename).
				Str("url", f.URL).
				Err(err).
				Msg("Filing download failed, skipping")
			continue
		}

		pages, err := pdfPageCount(data)
		if err != nil {
			s.logger.Warn().
				Str("filename", f.Filename).
				Err(err).
				Msg("Downloaded file is not a readable PDF, skipping")
			continue
		}
		f.Pages = pages

		if err := s.artifacts.Put(ctx, &interfaces.Artifact{
			Key:       strings.ToUpper(entity.Ticker) + "/" + f.Filename,
			Ticker:    strings.ToUpper(entity.Ticker),
			Filename:  f.Filename,
			Content:   data,
			Source:    "bse_india",
			FetchedAt: time.Now().UTC(),
		}); err != nil {
			s.logger.Warn().Str("filename", f.Filename).Err(err).Msg("Artifact store failed")
			continue
		}

		downloaded++
		kept = append(kept, f)
	}

	s.logger.Info().
		Str("ticker", entity.Ticker).
		Int("downloaded", downloaded).
		Int("kept", len(kept)).
		Msg("BSE filings archived")

	return kept
}

// digest renders the filing metadata as retrieval text, newest first.
// Returns "" when the window produced no filings.
func digest(entity *models.Entity, filings []filing) string {
	if len(filings) == 0 {
		return ""
	}

	sorted := make([]filing, len(filings))
	copy(sorted, filings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Filename < sorted[j].Filename
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Corporate filings for %s (%s) over the trailing year, newest first.\n",
		entity.Name, strings.ToUpper(entity.Ticker))
	for _, f := range sorted {
		fmt.Fprintf(&sb, "%s: %s", f.Date, strings.TrimSpace(f.Subject))
		if f.Pages > 0 {
			fmt.Fprintf(&sb, " (%d pages)", f.Pages)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func latestFilingDate(filings []filing) string {
	latest := ""
	for _, f := range filings {
		if f.Date > latest {
			latest = f.Date
		}
	}
	return latest
}

// safeName reduces a filing subject to a filesystem-safe slug.
func safeName(subject string) string {
	runes := []rune(subject)
	if len(runes) > 60 {
		runes = runes[:60]
	}
	var sb strings.Builder
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func pdfPageCount(data []byte) (int, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}
