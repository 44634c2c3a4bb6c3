// Package index speaks to a Python package index: the simple repository API
// for reads, the legacy upload API for writes, and the trusted-publishing
// token exchange for authentication.
//
// https://packaging.python.org/specifications/simple-repository-api/
package index

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pesap/reVX/pkg/pydist/version"
	"github.com/pesap/reVX/pkg/pydist/wheel"
)

type Client struct {
	// BaseURL is the root of the simple API; defaults to PyPI.
	BaseURL string
	// UploadURL is the legacy upload endpoint; defaults to PyPI.
	UploadURL string
	// MintURL is the trusted-publishing token exchange endpoint, which
	// lives on the index host, not the upload host; defaults to PyPI.
	MintURL string
	// Token is the API token presented on uploads ("__token__" basic
	// auth); mint one with MintToken or supply a long-lived one.
	Token string

	HTTPClient *http.Client
	UserAgent  string

	// Python, if set, filters out files whose data-requires-python the
	// given interpreter version does not satisfy.
	Python *version.Version
}

const (
	PyPIBaseURL   = "https://pypi.org/simple/"
	PyPIUploadURL = "https://upload.pypi.org/legacy/"
	PyPIMintURL   = "https://pypi.org/_/oidc/mint-token"
)

func (c *Client) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = PyPIBaseURL
	}
	if c.UploadURL == "" {
		c.UploadURL = PyPIUploadURL
	}
	if c.MintURL == "" {
		c.MintURL = PyPIMintURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.UserAgent == "" {
		c.UserAgent = "github.com/pesap/reVX/pkg/pydist/index"
	}
}

type HTTPError struct {
	Status     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("HTTP %s", e.Status)
}

func (c Client) get(ctx context.Context, requestURL string) (_ *url.URL, _ []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("GET %q => %w", requestURL, err)
		}
	}()
	c.fillDefaults()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, err
	}
	if err := resp.Body.Close(); err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &HTTPError{Status: resp.Status, StatusCode: resp.StatusCode}
	}

	// a "#alg=hexdigest" fragment on the request URL is a checksum to
	// verify the body against
	if u, err := url.Parse(requestURL); err == nil && u.Fragment != "" {
		if keyvals, err := url.ParseQuery(u.Fragment); err == nil {
			for key, vals := range keyvals {
				var sum []byte
				for _, val := range vals {
					switch key {
					case "md5":
						_sum := md5.Sum(content)
						sum = _sum[:]
					case "sha1":
						_sum := sha1.Sum(content)
						sum = _sum[:]
					case "sha224":
						_sum := sha256.Sum224(content)
						sum = _sum[:]
					case "sha256":
						_sum := sha256.Sum256(content)
						sum = _sum[:]
					case "sha384":
						_sum := sha512.Sum384(content)
						sum = _sum[:]
					case "sha512":
						_sum := sha512.Sum512(content)
						sum = _sum[:]
					}
					if sum != nil && hex.EncodeToString(sum) != val {
						return nil, nil, fmt.Errorf("checksum mismatch: %s: expected=%s actual=%s",
							key, val, hex.EncodeToString(sum))
					}
				}
			}
		}
	}

	return resp.Request.URL, content, nil
}

func visitHTML(node *html.Node, before, after func(*html.Node) error) error {
	if before != nil {
		if err := before(node); err != nil {
			return err
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := visitHTML(child, before, after); err != nil {
			return err
		}
	}
	if after != nil {
		if err := after(node); err != nil {
			return err
		}
	}
	return nil
}

type Link struct {
	Text      string
	HRef      string
	DataAttrs map[string]string
}

func (c Client) getHTML5Index(ctx context.Context, requestURL string) ([]Link, error) {
	location, content, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var links []Link
	if err := visitHTML(doc, nil, func(node *html.Node) error {
		if node.Type != html.ElementNode || node.Data != "a" {
			return nil
		}
		link := Link{
			DataAttrs: make(map[string]string),
		}
		for _, attr := range node.Attr {
			switch {
			case attr.Namespace == "" && attr.Key == "href":
				href, err := location.Parse(attr.Val)
				if err != nil {
					return err
				}
				link.HRef = href.String()
			case attr.Namespace == "" && strings.HasPrefix(attr.Key, "data-"):
				link.DataAttrs[attr.Key] = attr.Val
			}
		}
		var text strings.Builder
		_ = visitHTML(node, nil, func(child *html.Node) error {
			if child.Type == html.TextNode {
				text.WriteString(child.Data)
			}
			return nil
		})
		link.Text = text.String()
		links = append(links, link)
		return nil
	}); err != nil {
		return nil, err
	}

	return links, nil
}

var normalizeRe = regexp.MustCompile("[-_.]+")

func normalize(str string) string {
	return strings.ToLower(normalizeRe.ReplaceAllLiteralString(str, "-"))
}

type FileLink struct {
	client Client
	Link
}

// ListPackageFiles returns the file links of a package's simple-API page.
func (c Client) ListPackageFiles(ctx context.Context, pkgname string) ([]FileLink, error) {
	// "the only valid characters in a name are the ASCII alphabet, ASCII
	// numbers, `.`, `-`, and `_`."
	for _, char := range pkgname {
		if !(('a' <= char && char <= 'z') ||
			('A' <= char && char <= 'Z') ||
			('0' <= char && char <= '9') ||
			char == '.' ||
			char == '-' ||
			char == '_') {
			return nil, fmt.Errorf("illegal character in pkgname: %q: %s",
				pkgname, strconv.QuoteRuneToASCII(char))
		}
	}

	c.fillDefaults()
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, normalize(pkgname)) + "/"
	rawLinks, err := c.getHTML5Index(ctx, u.String())
	if err != nil {
		return nil, err
	}
	links := make([]FileLink, 0, len(rawLinks))
	for _, link := range rawLinks {
		if c.Python != nil {
			if reqPy := link.DataAttrs["data-requires-python"]; reqPy != "" {
				ok, err := version.HaveRequiredPython(*c.Python, reqPy)
				if err == nil && !ok {
					continue
				}
			}
		}
		links = append(links, FileLink{
			client: c,
			Link:   link,
		})
	}
	return links, nil
}

// Get downloads the linked file, verifying any checksum fragment.
func (l FileLink) Get(ctx context.Context) ([]byte, error) {
	_, content, err := l.client.get(ctx, l.HRef)
	return content, err
}

// HasVersion reports whether the index already has any file of
// pkgname==ver; publishing such a version again must be refused.
func (c Client) HasVersion(ctx context.Context, pkgname string, ver version.Version) (bool, error) {
	links, err := c.ListPackageFiles(ctx, pkgname)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			// brand-new package
			return false, nil
		}
		return false, err
	}
	for _, link := range links {
		linkVer, err := fileVersion(link.Text)
		if err != nil {
			continue
		}
		if linkVer.Cmp(ver) == 0 {
			return true, nil
		}
	}
	return false, nil
}

// fileVersion extracts the version from a distribution filename, wheel or
// sdist.
func fileVersion(filename string) (*version.Version, error) {
	if strings.HasSuffix(filename, ".whl") {
		fn, err := wheel.ParseFilename(filename)
		if err != nil {
			return nil, err
		}
		return &fn.Version, nil
	}
	base := filename
	for _, suffix := range []string{".tar.gz", ".zip", ".tar.bz2"} {
		if s, ok := strings.CutSuffix(base, suffix); ok {
			base = s
			break
		}
	}
	i := strings.LastIndex(base, "-")
	if i < 0 {
		return nil, fmt.Errorf("index: no version in filename: %q", filename)
	}
	return version.Parse(base[i+1:])
}
