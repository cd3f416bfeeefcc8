package rates

import (
	"context"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/shopspring/decimal"
)

const (
	// The rate element on minfin.com.ua; rendered client-side, so a
	// plain HTTP GET does not see it.
	defaultSelector = ".sc-1x32wa2-9"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 " +
		"Safari/537.36 OPR/77.0.4054.172"

	selectorWaitMS = 3000
)

// MinfinScraper reads the USD rate from minfin.com.ua with a headless
// Chromium page. A browser is launched per lookup, mirroring the site's
// expectation of a real page load; wrap with Cached to avoid repeats.
type MinfinScraper struct {
	url      string
	selector string
}

func NewMinfinScraper(url string) *MinfinScraper {
	return &MinfinScraper{url: url, selector: defaultSelector}
}

func (s *MinfinScraper) Rate(ctx context.Context) (decimal.Decimal, error) {
	pw, err := playwright.Run()
	if err != nil {
		return unavailable(ctx, "start playwright", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return unavailable(ctx, "launch chromium", err)
	}
	defer browser.Close()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return unavailable(ctx, "open page", err)
	}

	if _, err := page.Goto(s.url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return unavailable(ctx, "navigate", err)
	}

	locator := page.Locator(s.selector).First()
	if err := locator.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(selectorWaitMS),
	}); err != nil {
		return unavailable(ctx, "wait for rate element", err)
	}

	text, err := locator.TextContent()
	if err != nil {
		return unavailable(ctx, "read rate element", err)
	}

	rate, err := parseRate(text)
	if err != nil {
		return unavailable(ctx, "parse rate", err)
	}

	slog.InfoContext(ctx, "Fetched USD exchange rate", "rate", rate.String())
	return rate, nil
}

// parseRate extracts the rate from the element text: first line only,
// decimal comma normalized to a dot. The rate must be positive.
func parseRate(text string) (decimal.Decimal, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.ReplaceAll(strings.TrimSpace(line), ",", ".")
	rate, err := decimal.NewFromString(line)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, ErrUnavailable
	}
	return rate, nil
}

func unavailable(ctx context.Context, step string, err error) (decimal.Decimal, error) {
	slog.WarnContext(ctx, "Rate scrape failed", "step", step, "error", err)
	return decimal.Decimal{}, ErrUnavailable
}
