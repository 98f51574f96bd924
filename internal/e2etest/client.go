package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/justinas/nosurf"
	"github.com/myrjola/tripguide/internal/errors"
)

type Client struct {
	client *http.Client
	url    string
}

// NewClient creates an HTTP client with a cookie jar that keeps the session across requests.
func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar}, //nolint:exhaustruct // default transport
		url:    url,
	}, nil
}

// Page is a response parsed as an HTML document.
type Page struct {
	StatusCode int
	Doc        *goquery.Document
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// Fetch gets urlPath and parses the response whatever its status.
func (c *Client) Fetch(ctx context.Context, urlPath string) (Page, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return Page{}, errors.Wrap(err, "client get") //nolint:exhaustruct // error path
	}
	return readPage(resp)
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	page, err := c.Fetch(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	if http.StatusOK != page.StatusCode {
		return nil, errors.New("unexpected status code", slog.Int("status", page.StatusCode))
	}
	return page.Doc, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}

func (c *Client) extractCSRFToken(doc *goquery.Document, formActionURLPath string) (string, error) {
	formSelector := fmt.Sprintf("form[action='%s']", formActionURLPath)
	form := doc.Find(formSelector).First()
	csrfToken, ok := form.Find("input[name=" + nosurf.FormFieldName + "]").Attr("value")
	if !ok {
		return "", errors.New("csrf_token not found in form", slog.String("action", formActionURLPath))
	}
	return csrfToken, nil
}

// Submit posts values to the form with action formActionURLPath found in doc. Redirects are followed.
func (c *Client) Submit(
	ctx context.Context,
	doc *goquery.Document,
	formActionURLPath string,
	values neturl.Values,
) (Page, error) {
	csrfToken, err := c.extractCSRFToken(doc, formActionURLPath)
	if err != nil {
		return Page{}, errors.Wrap(err, "extract CSRF token") //nolint:exhaustruct // error path
	}

	formData := neturl.Values{}
	for key, vs := range values {
		formData[key] = append([]string(nil), vs...)
	}
	formData.Set(nosurf.FormFieldName, csrfToken)

	var req *http.Request
	if req, err = c.newRequestWithContext(ctx, http.MethodPost, formActionURLPath,
		strings.NewReader(formData.Encode())); err != nil {
		return Page{}, errors.Wrap(err, "new request with context") //nolint:exhaustruct // error path
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return Page{}, errors.Wrap(err, "do request") //nolint:exhaustruct // error path
	}
	return readPage(resp)
}

// SubmitForm submits a form at formUrlPath with action formActionUrlPath and returns the response document.
func (c *Client) SubmitForm(
	ctx context.Context,
	formURLPath string,
	formActionURLPath string,
	values neturl.Values,
) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, formURLPath)
	if err != nil {
		return nil, errors.Wrap(err, "get document")
	}
	page, err := c.Submit(ctx, doc, formActionURLPath, values)
	if err != nil {
		return nil, err
	}
	if http.StatusOK != page.StatusCode {
		return nil, errors.New("unexpected status code", slog.Int("status", page.StatusCode))
	}
	return page.Doc, nil
}

// maxQuestions guards CompleteFlow against a flow that never ends.
const maxQuestions = 50

// CompleteFlow starts flowType from the front page and answers every question it is shown. answers maps question
// ids to the form values for that question; questions without an entry are submitted empty. The page after the
// last answer is returned, normally the results.
func (c *Client) CompleteFlow(ctx context.Context, flowType string, answers map[string]neturl.Values) (Page, error) {
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return Page{}, errors.Wrap(err, "get front page") //nolint:exhaustruct // error path
	}
	page, err := c.Submit(ctx, doc, "/flow/start", neturl.Values{"flow_type": {flowType}})
	if err != nil {
		return Page{}, errors.Wrap(err, "start flow") //nolint:exhaustruct // error path
	}
	for range maxQuestions {
		questionID, isQuestion := page.Doc.Find("form[action='/flow/answer'] input[name=question_id]").Attr("value")
		if !isQuestion {
			return page, nil
		}
		if page.StatusCode != http.StatusOK {
			return page, errors.New("question rejected",
				slog.String("question_id", questionID), slog.Int("status", page.StatusCode))
		}
		values := neturl.Values{"question_id": {questionID}}
		for key, vs := range answers[questionID] {
			values[key] = vs
		}
		if page, err = c.Submit(ctx, page.Doc, "/flow/answer", values); err != nil {
			return Page{}, errors.Wrap(err, "answer", slog.String("question_id", questionID)) //nolint:exhaustruct,lll // error path
		}
	}
	return Page{}, errors.New("flow did not end") //nolint:exhaustruct // error path
}

func readPage(resp *http.Response) (Page, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, errors.Wrap(err, "create document from reader") //nolint:exhaustruct // error path
	}
	return Page{StatusCode: resp.StatusCode, Doc: doc}, nil
}
