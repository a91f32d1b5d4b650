package pipeline

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// adDenylist drops ad and tracking domains from extracted links and images.
var adDenylist = []string{
	"doubleclick.net",
	"googleadservices.com",
	"googlesyndication.com",
	"google-analytics.com",
	"adservice.google.com",
	"taboola.com",
	"outbrain.com",
	"adnxs.com",
}

// extractLinks scans message content for URLs and splits them into plain
// links and direct image links. Denylisted domains are dropped entirely.
func extractLinks(content string) (links, images []string) {
	for _, raw := range urlPattern.FindAllString(content, -1) {
		cleaned := strings.TrimRight(raw, ".,;:!?)]}>")
		parsed, err := url.Parse(cleaned)
		if err != nil || parsed.Host == "" {
			continue
		}
		if denied(parsed.Host) {
			continue
		}

		if img, ok := normalizeImageURL(parsed, cleaned); ok {
			images = append(images, img)
			continue
		}
		links = append(links, cleaned)
	}
	return links, images
}

// normalizeImageURL recognizes direct image links and rewrites known gallery
// URLs into their canonical direct-image form.
func normalizeImageURL(parsed *url.URL, raw string) (string, bool) {
	lowerPath := strings.ToLower(parsed.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return raw, true
		}
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host == "imgur.com" {
		// Bare gallery pages rewrite to i.imgur.com direct images; albums
		// and multi-image galleries have no single canonical image.
		if strings.HasPrefix(parsed.Path, "/a/") || strings.HasPrefix(parsed.Path, "/gallery/") {
			return "", false
		}
		id := strings.Trim(parsed.Path, "/")
		if id != "" && !strings.Contains(id, "/") {
			return "https://i.imgur.com/" + id + ".jpg", true
		}
	}
	return "", false
}

func denied(host string) bool {
	host = strings.ToLower(host)
	for _, bad := range adDenylist {
		if host == bad || strings.HasSuffix(host, "."+bad) {
			return true
		}
	}
	return false
}
