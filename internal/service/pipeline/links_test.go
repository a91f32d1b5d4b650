package pipeline

import (
	"reflect"
	"testing"
)

func TestExtractLinksSplitsImagesFromLinks(t *testing.T) {
	content := "check https://example.com/docs and https://example.com/cat.png too"
	links, images := extractLinks(content)

	if !reflect.DeepEqual(links, []string{"https://example.com/docs"}) {
		t.Fatalf("unexpected links: %v", links)
	}
	if !reflect.DeepEqual(images, []string{"https://example.com/cat.png"}) {
		t.Fatalf("unexpected images: %v", images)
	}
}

func TestExtractLinksTrimsTrailingPunctuation(t *testing.T) {
	links, _ := extractLinks("see https://example.com/page.")
	if len(links) != 1 || links[0] != "https://example.com/page" {
		t.Fatalf("unexpected links: %v", links)
	}
}

func TestExtractLinksDropsAdDomains(t *testing.T) {
	links, images := extractLinks("https://ad.doubleclick.net/track?id=1 https://www.googleadservices.com/pixel.png")
	if len(links) != 0 || len(images) != 0 {
		t.Fatalf("ad domains should be dropped, got links=%v images=%v", links, images)
	}
}

func TestImgurGalleryRewritesToDirectImage(t *testing.T) {
	_, images := extractLinks("lol https://imgur.com/dQw4w9W")
	if len(images) != 1 || images[0] != "https://i.imgur.com/dQw4w9W.jpg" {
		t.Fatalf("unexpected images: %v", images)
	}
}

func TestImgurAlbumsAreNotImages(t *testing.T) {
	links, images := extractLinks("https://imgur.com/a/abc123 https://imgur.com/gallery/def456")
	if len(images) != 0 {
		t.Fatalf("albums have no single image, got %v", images)
	}
	if len(links) != 2 {
		t.Fatalf("albums should stay plain links, got %v", links)
	}
}

func TestExtractLinksNoURLs(t *testing.T) {
	links, images := extractLinks("just chatting, no urls here")
	if links != nil || images != nil {
		t.Fatalf("expected nothing, got links=%v images=%v", links, images)
	}
}
