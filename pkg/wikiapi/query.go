package wikiapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ImageInfo is the image metadata returned by prop=imageinfo.
type ImageInfo struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	DescriptionURL string `json:"descriptionurl,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`

	// Thumb* are set when a width was requested.
	ThumbURL    string `json:"thumburl,omitempty"`
	ThumbWidth  int    `json:"thumbwidth,omitempty"`
	ThumbHeight int    `json:"thumbheight,omitempty"`
}

// ResourceURL returns the URL to download: the scaled thumbnail when a width
// was requested and the wiki produced one, the original otherwise.
func (i *ImageInfo) ResourceURL(width int) string {
	if width > 0 && i.ThumbURL != "" {
		return i.ThumbURL
	}
	return i.URL
}

type queryResponse struct {
	Query struct {
		Pages []page `json:"pages"`
	} `json:"query"`
}

type page struct {
	Title     string      `json:"title"`
	Missing   bool        `json:"missing"`
	Invalid   bool        `json:"invalid"`
	Revisions []revision  `json:"revisions"`
	ImageInfo []ImageInfo `json:"imageinfo"`
}

type revision struct {
	Slots struct {
		Main struct {
			Content *string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

// FetchPageContent returns the current wikitext of a page. A page that
// exists with empty text returns "" and no error; a missing page returns
// ErrNotFound.
func (c *Client) FetchPageContent(ctx context.Context, title string) (string, error) {
	if err := c.Login(ctx); err != nil {
		return "", err
	}

	var content string
	err := c.execute(func() error {
		var resp queryResponse
		params := url.Values{
			"action":  {"query"},
			"prop":    {"revisions"},
			"rvprop":  {"content"},
			"rvslots": {"main"},
			"titles":  {title},
		}
		if err := c.getJSON(ctx, params, &resp); err != nil {
			return err
		}

		p, err := firstPage(resp, title)
		if err != nil {
			return err
		}
		if len(p.Revisions) == 0 || p.Revisions[0].Slots.Main.Content == nil {
			return fmt.Errorf("%w: %s has no revisions", ErrNotFound, title)
		}

		content = *p.Revisions[0].Slots.Main.Content
		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

// FetchImageInfo returns image metadata for a File: title. When width is
// positive the wiki is asked for a thumbnail of that width as well.
func (c *Client) FetchImageInfo(ctx context.Context, title string, width int) (*ImageInfo, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}

	var info *ImageInfo
	err := c.execute(func() error {
		var resp queryResponse
		params := url.Values{
			"action": {"query"},
			"prop":   {"imageinfo"},
			"iiprop": {"url|size"},
			"titles": {title},
		}
		if width > 0 {
			params.Set("iiurlwidth", strconv.Itoa(width))
		}
		if err := c.getJSON(ctx, params, &resp); err != nil {
			return err
		}

		// Files hosted on a shared repository come back "missing" locally
		// but still carry imageinfo.
		p, err := anyPage(resp, title)
		if err != nil {
			return err
		}
		if len(p.ImageInfo) == 0 || p.ImageInfo[0].URL == "" {
			return fmt.Errorf("%w: %s has no image info", ErrNotFound, title)
		}

		ii := p.ImageInfo[0]
		ii.Title = p.Title
		info = &ii
		return nil
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

func anyPage(resp queryResponse, title string) (*page, error) {
	if len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}
	p := resp.Query.Pages[0]
	if p.Invalid {
		return nil, fmt.Errorf("%w: invalid title %s", ErrNotFound, title)
	}
	return &p, nil
}

func firstPage(resp queryResponse, title string) (*page, error) {
	p, err := anyPage(resp, title)
	if err != nil {
		return nil, err
	}
	if p.Missing {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}
	return p, nil
}
