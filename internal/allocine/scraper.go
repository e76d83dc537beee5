package allocine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// StatusError reports an unexpected status from the ratings site.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("allocine: search returned %d", e.StatusCode)
}

// Scraper defines the ratings lookup contract.
type Scraper interface {
	GetRatings(ctx context.Context, title string, releaseYear int) (domain.Ratings, error)
}

// HTTPScraper implements Scraper against the site's internal search page.
type HTTPScraper struct {
	baseURL *url.URL
	client  *http.Client
	logger  logrus.FieldLogger
}

// NewHTTPScraper constructs a scraper rooted at baseURL.
func NewHTTPScraper(baseURL string, timeout time.Duration, logger logrus.FieldLogger) (*HTTPScraper, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse allocine url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScraper{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger,
	}, nil
}

type entry struct {
	title     string
	year      int
	critic    *int
	spectator *int
	link      *string
}

// GetRatings searches the site for title and returns the ratings of the entry
// whose title matches case-insensitively. A releaseYear of zero means unknown.
// No match is not an error: every field of the result is nil.
func (s *HTTPScraper) GetRatings(ctx context.Context, title string, releaseYear int) (domain.Ratings, error) {
	endpoint := s.baseURL.JoinPath("/rechercher/")
	endpoint.RawQuery = url.Values{"q": []string{title}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.Ratings{}, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Ratings{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Ratings{}, &StatusError{StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Ratings{}, fmt.Errorf("allocine: parse search page: %w", err)
	}

	match := pickEntry(s.parseEntries(doc), title, releaseYear)
	if match == nil {
		s.logger.WithFields(logrus.Fields{"title": title, "year": releaseYear}).Info("allocine: no matching entry")
		return domain.Ratings{}, nil
	}
	return domain.Ratings{Critic: match.critic, Spectator: match.spectator, Link: match.link}, nil
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

func (s *HTTPScraper) parseEntries(doc *goquery.Document) []entry {
	var entries []entry
	doc.Find("ul li.mdl").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find(".meta-title-link").First()
		e := entry{title: strings.TrimSpace(anchor.Text())}

		if href, ok := anchor.Attr("href"); ok && href != "" {
			if ref, err := url.Parse(href); err == nil {
				link := s.baseURL.ResolveReference(ref).String()
				e.link = &link
			}
		}

		notes := sel.Find(".rating-item .stareval-note")
		e.critic = ParseRating(notes.Eq(0).Text())
		e.spectator = ParseRating(notes.Eq(1).Text())

		if m := yearPattern.FindStringSubmatch(sel.Find(".meta-body-info .date").First().Text()); m != nil {
			e.year, _ = strconv.Atoi(m[1])
		}
		entries = append(entries, e)
	})
	return entries
}

func pickEntry(entries []entry, title string, releaseYear int) *entry {
	var first *entry
	for i := range entries {
		if !strings.EqualFold(entries[i].title, strings.TrimSpace(title)) {
			continue
		}
		if releaseYear == 0 || entries[i].year == releaseYear {
			return &entries[i]
		}
		if first == nil {
			first = &entries[i]
		}
	}
	return first
}

// maxWhole bounds the integer part; site ratings never exceed five stars.
const maxWhole = 100

// ParseRating converts a comma-decimal rating string such as "4,5" to its
// value scaled by ten (45). Anything other than exactly two numeric segments
// yields nil.
func ParseRating(raw string) *int {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return nil
	}
	whole, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || whole < 0 || whole > maxWhole {
		return nil
	}
	decimal := strings.TrimSpace(parts[1])
	if decimal == "" {
		return nil
	}
	if _, err := strconv.Atoi(decimal); err != nil || strings.HasPrefix(decimal, "-") || strings.HasPrefix(decimal, "+") {
		return nil
	}
	value := whole*10 + int(decimal[0]-'0')
	return &value
}
