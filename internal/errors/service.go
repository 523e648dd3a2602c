// internal/errors/service.go - User-facing error reporting
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/output"
	"github.com/valpere/CatalogScrapexter/internal/pipeline"
	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// Exit codes returned by the CLI.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitConfiguration = 2
	ExitNetwork       = 3
	ExitSelector      = 4
	ExitOutput        = 5
	ExitValidation    = 6
	ExitRateLimited   = 7
	ExitAuth          = 8
	ExitCancelled     = 130
)

// Service converts technical errors to user-friendly messages and exit
// codes.
type Service struct {
	messageHandler *MessageHandler
}

// MessageHandler controls how much detail is shown to the user
type MessageHandler struct {
	showTechnical bool
}

// Report is the user-facing description of an error.
type Report struct {
	Title       string
	Message     string
	Suggestions []string
	ExitCode    int
}

// NewService creates a new error reporting service
func NewService() *Service {
	return &Service{messageHandler: &MessageHandler{showTechnical: false}}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// Classify inspects the error chain and picks the most specific report.
func (s *Service) Classify(err error) Report {
	if err == nil {
		return Report{ExitCode: ExitOK}
	}

	if errors.Is(err, pipeline.ErrCancelled) {
		return Report{
			Title:    "Run Stopped",
			Message:  "The run was interrupted. Products parsed before the stop were exported.",
			ExitCode: ExitCancelled,
		}
	}

	var missing *config.MissingFieldError
	if errors.As(err, &missing) {
		return Report{
			Title:   "Incomplete Profile",
			Message: fmt.Sprintf("The profile does not define %q.", missing.Field),
			Suggestions: []string{
				"Every profile needs url, link_pattern and the four product_*_selector keys",
				"Run 'profile init' to create a complete template",
			},
			ExitCode: ExitConfiguration,
		}
	}

	var profileErr *config.ProfileLoadError
	if errors.As(err, &profileErr) {
		return Report{
			Title:   "Profile Error",
			Message: "The profile could not be read.",
			Suggestions: []string{
				"Check that the profile file exists and is readable",
				"Validate the JSON syntax of the profile",
			},
			ExitCode: ExitConfiguration,
		}
	}

	var validationErr config.ValidationError
	if errors.As(err, &validationErr) {
		return Report{
			Title:   "Invalid Configuration",
			Message: fmt.Sprintf("The value of %s is not valid: %s.", validationErr.Path, validationErr.Message),
			Suggestions: []string{
				"Fix the field in the profile or settings file",
				"Command-line flags override settings file values",
			},
			ExitCode: ExitValidation,
		}
	}

	var selectorErr *scraper.SelectorSyntaxError
	if errors.As(err, &selectorErr) {
		return Report{
			Title:   "Invalid Selector",
			Message: fmt.Sprintf("The %s selector %q is not a valid CSS selector.", selectorErr.Field, selectorErr.Selector),
			Suggestions: []string{
				"Check the selector syntax",
				"Test the selector in the browser developer tools",
			},
			ExitCode: ExitSelector,
		}
	}

	var exportErr *output.ExportError
	if errors.As(err, &exportErr) {
		return Report{
			Title:   "Export Failed",
			Message: fmt.Sprintf("Could not write %s output to %s.", exportErr.Format, exportErr.Destination),
			Suggestions: []string{
				"Check that the destination is writable and has free space",
				"For databases, verify the DSN and that the server is reachable",
			},
			ExitCode: ExitOutput,
		}
	}

	var runErr *pipeline.RunError
	if errors.As(err, &runErr) && runErr.Stage == pipeline.StageExport {
		return Report{
			Title:   "Export Failed",
			Message: "The output destination could not be opened.",
			Suggestions: []string{
				"Check the output format and destination settings",
				"For databases, verify the DSN and that the server is reachable",
			},
			ExitCode: ExitOutput,
		}
	}

	var fetchErr *scraper.FetchError
	if errors.As(err, &fetchErr) {
		return s.classifyFetch(fetchErr)
	}

	if strings.Contains(strings.ToLower(err.Error()), "yaml") {
		return Report{
			Title:   "Configuration Error",
			Message: "The settings file has invalid YAML syntax.",
			Suggestions: []string{
				"Check YAML indentation (use spaces, not tabs)",
				"Ensure proper quoting of string values",
			},
			ExitCode: ExitConfiguration,
		}
	}

	return Report{
		Title:   "Unexpected Error",
		Message: "An unexpected error occurred during the operation.",
		Suggestions: []string{
			"Try running the command again",
			"Run with --verbose for technical details",
		},
		ExitCode: ExitGeneral,
	}
}

func (s *Service) classifyFetch(err *scraper.FetchError) Report {
	var dnsErr *net.DNSError
	switch {
	case err.StatusCode == http.StatusTooManyRequests:
		return Report{
			Title:   "Rate Limit Exceeded",
			Message: "The website is rejecting requests because they arrive too quickly.",
			Suggestions: []string{
				"Lower rate_limit in the settings file",
				"Reduce --concurrency",
			},
			ExitCode: ExitRateLimited,
		}
	case err.StatusCode == http.StatusUnauthorized || err.StatusCode == http.StatusForbidden:
		return Report{
			Title:   "Access Denied",
			Message: fmt.Sprintf("The website refused access to %s (HTTP %d).", err.URL, err.StatusCode),
			Suggestions: []string{
				"Check whether the page requires a login",
				"Set request headers in the settings file",
			},
			ExitCode: ExitAuth,
		}
	case err.StatusCode != 0:
		return Report{
			Title:   "Page Unavailable",
			Message: fmt.Sprintf("The seed page %s returned HTTP %d.", err.URL, err.StatusCode),
			Suggestions: []string{
				"Open the URL in a browser to confirm it exists",
				"Update the url field of the profile",
			},
			ExitCode: ExitNetwork,
		}
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return Report{
			Title:   "Connection Timeout",
			Message: "The request timed out while trying to connect to the website.",
			Suggestions: []string{
				"Check your internet connection",
				"Increase --timeout or request_timeout",
				"The website might be slow or experiencing issues",
			},
			ExitCode: ExitNetwork,
		}
	case errors.As(err, &dnsErr):
		return Report{
			Title:   "Domain Not Found",
			Message: "Could not find the website domain.",
			Suggestions: []string{
				"Check if the URL is spelled correctly",
				"Check your DNS settings",
			},
			ExitCode: ExitNetwork,
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		return Report{
			Title:   "Connection Refused",
			Message: "The website server refused the connection.",
			Suggestions: []string{
				"Check if the website is accessible in a browser",
				"The server might be temporarily down",
			},
			ExitCode: ExitNetwork,
		}
	case errors.Is(err, scraper.ErrInvalidURL):
		return Report{
			Title:       "Invalid URL",
			Message:     fmt.Sprintf("%q is not an absolute http or https URL.", err.URL),
			Suggestions: []string{"Include the scheme, e.g. https://shop.example.com/catalog"},
			ExitCode:    ExitValidation,
		}
	}
	return Report{
		Title:       "Network Error",
		Message:     "The seed page could not be fetched.",
		Suggestions: []string{"Check your internet connection"},
		ExitCode:    ExitNetwork,
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}
	r := s.Classify(err)
	return r.Title, r.Message, r.Suggestions
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	return s.Classify(err).ExitCode
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	if err == nil {
		return ""
	}
	r := s.Classify(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", r.Title, r.Message)

	if s.messageHandler.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, suggestion := range r.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", suggestion)
		}
	}

	return b.String()
}
