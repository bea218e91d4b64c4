// Package hub gathers public evidence about model, dataset, and code
// URLs from Hugging Face and GitHub. All network access for scoring
// lives here; metrics stay pure functions over the Evidence value.
package hub

import (
	"net/url"
	"strings"
)

// Kind classifies where a URL points.
type Kind string

const (
	KindHuggingFace        Kind = "huggingface"
	KindHuggingFaceDataset Kind = "huggingface_dataset"
	KindGitHub             Kind = "github"
	KindDirect             Kind = "direct"
)

// URLInfo is the parsed identity of a supported URL. Owner and Repo
// are set for Hugging Face and GitHub repository URLs only.
type URLInfo struct {
	URL   string
	Kind  Kind
	Owner string
	Repo  string
}

// DetectURL classifies a URL and extracts owner/repo where the host
// layout defines them. GitHub URLs with extra path segments (blobs,
// releases, raw files) are treated as direct downloads, not repos.
func DetectURL(raw string) URLInfo {
	info := URLInfo{URL: raw, Kind: KindDirect}

	u, err := url.Parse(raw)
	if err != nil {
		return info
	}
	host := strings.ToLower(u.Hostname())
	parts := splitPath(u.Path)

	switch {
	case strings.Contains(host, "huggingface.co"):
		if len(parts) >= 2 && parts[0] == "datasets" {
			info.Kind = KindHuggingFaceDataset
			if len(parts) >= 3 {
				info.Owner, info.Repo = parts[1], parts[2]
			} else {
				// Canonical datasets without a namespace, e.g.
				// huggingface.co/datasets/squad.
				info.Repo = parts[1]
			}
			return info
		}
		info.Kind = KindHuggingFace
		if len(parts) >= 2 {
			info.Owner, info.Repo = parts[0], parts[1]
		} else if len(parts) == 1 {
			info.Repo = parts[0]
		}
		return info

	case strings.Contains(host, "github.com"):
		if len(parts) == 2 {
			info.Kind = KindGitHub
			info.Owner, info.Repo = parts[0], parts[1]
		}
		return info
	}

	return info
}

// HFRepoID returns the API identifier for a Hugging Face URL, e.g.
// "openai/whisper-tiny" or just "squad" for unnamespaced datasets.
func (i URLInfo) HFRepoID() string {
	if i.Owner == "" {
		return i.Repo
	}
	return i.Owner + "/" + i.Repo
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
