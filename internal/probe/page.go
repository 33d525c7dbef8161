package probe

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/cachescan/internal/model"
)

// fingerprintLen is the number of hex characters kept from the page hash.
const fingerprintLen = 12

// fetchPage downloads an HTML page served in place of an asset.
// Failures are recorded in Page.Err.
func (p *HTTPProber) fetchPage(ctx context.Context, assetURL string) *model.Page {
	resp, err := p.do(ctx, http.MethodGet, assetURL)
	if err != nil {
		return &model.Page{Err: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return &model.Page{Err: fmt.Sprintf("failed to read body: %v", err)}
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return &model.Page{Err: fmt.Sprintf("failed to decode body: %v", err)}
	}

	return &model.Page{
		Raw:         raw,
		Body:        body,
		Title:       extractTitle(body),
		Fingerprint: Fingerprint(body),
	}
}

// decodeBody converts the page to NFC-normalised UTF-8 using the charset
// declared in the Content-Type header or the document itself.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return norm.NFC.Bytes(decoded), nil
}

// extractTitle returns the text of the first <title> element.
func extractTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			if z.Token().DataAtom == atom.Title {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		case html.EndTagToken:
			if inTitle && z.Token().DataAtom == atom.Title {
				return strings.Join(strings.Fields(sb.String()), " ")
			}
		}
	}
}

// Fingerprint returns a short content hash of a page so identical
// walls can be grouped across targets.
func Fingerprint(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
