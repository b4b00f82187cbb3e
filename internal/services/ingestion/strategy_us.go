package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/httpclient"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
)

// Inline XBRL tags survive HTML parsing and pollute extracted text.
var inlineXBRLTag = regexp.MustCompile(`(?i)</?ix:[^>]+>`)

var (
	blankLines  = regexp.MustCompile(`\n{2,}`)
	coverHeader = regexp.MustCompile(`(?i)UNITED STATES\s+SECURITIES AND EXCHANGE COMMISSION`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
)

// itemSections are the high signal 10-K sections kept for retrieval:
// Business, Risk Factors, MD&A and Market Risk. Each is bounded by the
// heading of the section that follows it.
var itemSections = []struct {
	name  string
	start *regexp.Regexp
	end   *regexp.Regexp
}{
	{"business", regexp.MustCompile(`(?is)Item\s+1\b.*?Business`), regexp.MustCompile(`(?is)Item\s+1A\b`)},
	{"risk_factors", regexp.MustCompile(`(?is)Item\s+1A\b`), regexp.MustCompile(`(?is)Item\s+1B\b`)},
	{"mdna", regexp.MustCompile(`(?is)Item\s+7\b.*?Management`), regexp.MustCompile(`(?is)Item\s+7A\b`)},
	{"market_risk", regexp.MustCompile(`(?is)Item\s+7A\b`), regexp.MustCompile(`(?is)Item\s+8\b`)},
}

// SECStrategy ingests narrative filings for US entities from EDGAR:
// the latest 10-K, reduced to its high signal sections.
type SECStrategy struct {
	config    *common.SECConfig
	client    *httpclient.Client
	converter *md.Converter
	logger    arbor.ILogger
}

// NewSECStrategy creates the US narrative strategy. EDGAR requires a
// descriptive identity header on every request.
func NewSECStrategy(config *common.SECConfig, logger arbor.ILogger) *SECStrategy {
	return &SECStrategy{
		config: config,
		client: httpclient.New(
			httpclient.WithUserAgent(config.UserAgent),
			httpclient.WithLogger(logger),
		),
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

func (s *SECStrategy) Jurisdiction() models.Jurisdiction {
	return models.JurisdictionUS
}

// submissionsResponse is the subset of the EDGAR submissions feed the
// strategy reads. The recent arrays are positionally aligned.
type submissionsResponse struct {
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
		} `json:"recent"`
	} `json:"filings"`
}

type filingIndex struct {
	Directory struct {
		Item []struct {
			Name string      `json:"name"`
			Size json.Number `json:"size"`
		} `json:"item"`
	} `json:"directory"`
}

// FetchNarrative resolves the entity's latest 10-K, fetches the filing
// document and condenses it to the retained item sections.
func (s *SECStrategy) FetchNarrative(ctx context.Context, entity *models.Entity) (*interfaces.RawNarrative, error) {
	cik := strings.TrimSpace(entity.CIK)
	if !digitsOnly.MatchString(cik) {
		return nil, fmt.Errorf("entity %s has invalid CIK %q", entity.Ticker, entity.CIK)
	}

	accession, filingDate, err := s.latestTenK(ctx, cik)
	if err != nil {
		return nil, err
	}

	filingURL, err := s.findFilingDocument(ctx, cik, accession)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("ticker", entity.Ticker).
		Str("accession", accession).
		Str("url", filingURL).
		Msg("Fetching 10-K filing")

	html, err := s.client.Get(ctx, filingURL)
	if err != nil {
		return nil, err
	}

	text, err := s.normalizeFiling(filingURL, string(html))
	if err != nil {
		return nil, err
	}

	return &interfaces.RawNarrative{
		Ticker:      entity.Ticker,
		Source:      "sec_edgar",
		FilingType:  "10-K",
		FilingDate:  filingDate,
		Accession:   accession,
		Text:        s.extractHighSignalText(text),
		DataVersion: models.DataVersionNarrative,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// latestTenK finds the most recent 10-K in the submissions feed.
// Returns the accession number with dashes stripped.
func (s *SECStrategy) latestTenK(ctx context.Context, cik string) (accession, filingDate string, err error) {
	url := fmt.Sprintf("%s/CIK%s.json", s.config.SubmissionsURL, common.PadCIK(cik))

	var submissions submissionsResponse
	if err := s.client.GetJSON(ctx, url, &submissions); err != nil {
		return "", "", err
	}

	recent := submissions.Filings.Recent
	for i, form := range recent.Form {
		if form != "10-K" || i >= len(recent.AccessionNumber) {
			continue
		}
		date := ""
		if i < len(recent.FilingDate) {
			date = recent.FilingDate[i]
		}
		return strings.ReplaceAll(recent.AccessionNumber[i], "-", ""), date, nil
	}

	return "", "", fmt.Errorf("no 10-K filing found for CIK %s", cik)
}

// findFilingDocument locates the narrative HTML inside the filing
// directory: the largest .htm that is not an XBRL or viewer artifact.
func (s *SECStrategy) findFilingDocument(ctx context.Context, cik, accession string) (string, error) {
	base := fmt.Sprintf("%s/%s/%s", s.config.ArchivesURL, strings.TrimLeft(cik, "0"), accession)

	var index filingIndex
	if err := s.client.GetJSON(ctx, base+"/index.json", &index); err != nil {
		return "", err
	}

	var bestName string
	var bestSize int64
	for _, item := range index.Directory.Item {
		name := strings.ToLower(item.Name)
		if !strings.HasSuffix(name, ".htm") && !strings.HasSuffix(name, ".html") {
			continue
		}
		if strings.Contains(name, "ix") || strings.Contains(name, "xbrl") {
			continue
		}
		size, _ := item.Size.Int64()
		if bestName == "" || size > bestSize {
			bestName = item.Name
			bestSize = size
		}
	}

	if bestName == "" {
		return "", fmt.Errorf("no narrative document found in filing %s", accession)
	}
	return base + "/" + bestName, nil
}

// normalizeFiling converts filing HTML to plain text and verifies it
// is a full narrative. Short documents are exhibits or stubs, not the
// 10-K itself.
func (s *SECStrategy) normalizeFiling(url, html string) (string, error) {
	html = inlineXBRLTag.ReplaceAllString(html, " ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse filing HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	text := s.converter.Convert(doc.Selection)
	text = strings.TrimSpace(blankLines.ReplaceAllString(text, "\n"))

	// Everything before the SEC cover header is viewer chrome.
	if loc := coverHeader.FindStringIndex(text); loc != nil {
		text = text[loc[0]:]
	}

	if len(text) < s.config.MinFilingChars {
		return "", &models.MalformedFilingError{
			URL:       url,
			Length:    len(text),
			MinLength: s.config.MinFilingChars,
		}
	}

	return text, nil
}

// extractHighSignalText keeps the retained item sections, dropping
// short matches that are table-of-contents hits rather than section
// bodies. If no section can be located the leading window of the
// filing is used instead.
func (s *SECStrategy) extractHighSignalText(text string) string {
	var sections []string
	for _, section := range itemSections {
		body := between(text, section.start, section.end)
		if len(body) > s.config.MinSectionChars {
			sections = append(sections, strings.TrimSpace(body))
		} else {
			s.logger.Debug().
				Str("section", section.name).
				Int("length", len(body)).
				Msg("Section too short, skipping")
		}
	}

	if len(sections) == 0 {
		return truncate(text, s.config.MaxOutputChars)
	}

	return truncate(strings.Join(sections, "\n\n"), s.config.MaxOutputChars)
}

// between returns the text from the start pattern's match up to the
// end pattern's match. The end match must come after the start match;
// otherwise the section is treated as absent.
func between(text string, start, end *regexp.Regexp) string {
	s := start.FindStringIndex(text)
	if s == nil {
		return ""
	}
	e := end.FindStringIndex(text)
	if e == nil || e[0] <= s[1] {
		return ""
	}
	return text[s[0]:e[0]]
}

func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
