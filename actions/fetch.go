package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

// the panel's public repository, source of every artifact set
const (
	artifactRepo  = "mtpanel/mtpanel"
	defaultBranch = "main"
)

// Fetcher acquires artifact archives from the release host.
type Fetcher struct {
	Client  *http.Client
	APIBase string
	Archive string
	Repo    string
	Branch  string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 60 * time.Second},
		APIBase: "https://api.github.com",
		Archive: "https://github.com",
		Repo:    artifactRepo,
		Branch:  defaultBranch,
	}
}

// Acquire downloads the artifact set into dir and returns the tarball path
// and the ref it came from. The latest tagged release is preferred, the
// branch archive is the fallback; only both failing is an error.
func (f *Fetcher) Acquire(channel, dir string) (string, string, error) {
	if channel != "main" {
		if tag, err := f.latestTag(); err == nil {
			url := fmt.Sprintf("%s/%s/archive/refs/tags/%s.tar.gz", f.Archive, f.Repo, tag)
			if path, err := f.download(url, filepath.Join(dir, "artifact.tar.gz")); err == nil {
				return path, tag, nil
			}
			fmt.Printf(" %s release %s could not be downloaded, falling back to the %s branch\n", color.YellowString("⚠"), tag, f.Branch)
		} else {
			fmt.Printf(" %s no tagged release found, falling back to the %s branch\n", color.YellowString("⚠"), f.Branch)
		}
	}

	url := fmt.Sprintf("%s/%s/archive/refs/heads/%s.tar.gz", f.Archive, f.Repo, f.Branch)
	path, err := f.download(url, filepath.Join(dir, "artifact.tar.gz"))
	if err != nil {
		return "", "", fmt.Errorf("Unable to fetch the artifact set: %s", err)
	}
	return path, f.Branch, nil
}

func (f *Fetcher) latestTag() (string, error) {
	resp, err := f.Client.Get(fmt.Sprintf("%s/repos/%s/releases/latest", f.APIBase, f.Repo))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup returned %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release lookup returned no tag")
	}
	return release.TagName, nil
}

func (f *Fetcher) download(url, dest string) (string, error) {
	resp, err := f.Client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s", url, resp.Status)
	}

	file, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(dest)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return dest, nil
}
