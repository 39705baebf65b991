// Package transport speaks the smart-HTTP half of the git-upload-pack
// protocol: discovering a remote's default branch and fetching the pack
// that realizes it.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/internal/pktline"
)

// ErrNoDefaultBranch is returned by DiscoverRef when neither refs/heads/main
// nor refs/heads/master is advertised by the remote.
var ErrNoDefaultBranch = errors.New("no default branch")

var refLine = regexp.MustCompile(`^([0-9a-f]{40}) refs/heads/(main|master)(?:\x00|$)`)

// Client fetches refs and packs from a single remote over HTTP.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// New returns a Client that talks to baseURL using http.DefaultClient.
func New(baseURL string) *Client {
	return &Client{HTTPClient: http.DefaultClient, BaseURL: baseURL}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// DiscoverRef fetches <BaseURL>/info/refs?service=git-upload-pack and
// returns the 40-hex commit hash of the remote's default branch
// (refs/heads/main, falling back to refs/heads/master).
func (c *Client) DiscoverRef(ctx context.Context) (string, error) {
	url := c.BaseURL + "/info/refs?service=git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", xerrors.Errorf("could not build ref discovery request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", xerrors.Errorf("ref discovery: http %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", xerrors.Errorf("could not read ref advertisement: %w", err)
	}

	var mainHash, masterHash string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.HasPrefix(line, pktline.Flush) {
			line = line[len(pktline.Flush):]
		}
		line = pktline.CutLengthPrefix(line)
		m := refLine.FindSubmatch(line)
		if m == nil {
			continue
		}
		switch string(m[2]) {
		case "main":
			mainHash = string(m[1])
		case "master":
			if masterHash == "" {
				masterHash = string(m[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", xerrors.Errorf("could not scan ref advertisement: %w", err)
	}

	if mainHash != "" {
		return mainHash, nil
	}
	if masterHash != "" {
		return masterHash, nil
	}
	return "", ErrNoDefaultBranch
}

// FetchPack requests the pack realizing want (a 40-hex commit hash) from
// <BaseURL>/git-upload-pack and returns the raw response body, unparsed.
func (c *Client) FetchPack(ctx context.Context, want string) ([]byte, error) {
	body := new(bytes.Buffer)

	wantLine, err := pktline.Encode([]byte(fmt.Sprintf("want %s\n", want)))
	if err != nil {
		return nil, xerrors.Errorf("could not encode want line: %w", err)
	}
	body.Write(wantLine)
	body.Write(pktline.Flush)

	doneLine, err := pktline.Encode([]byte("done\n"))
	if err != nil {
		return nil, xerrors.Errorf("could not encode done line: %w", err)
	}
	body.Write(doneLine)

	url := c.BaseURL + "/git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, xerrors.Errorf("could not build pack fetch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("pack fetch: http %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("could not read pack response: %w", err)
	}
	return data, nil
}
