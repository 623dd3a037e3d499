package fetch

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"papersum/internal/dispatch"
	"papersum/internal/fileutil"
	"papersum/internal/textutil"
)

var arxivAbs = regexp.MustCompile(`arxiv\.org/abs/([^/?#]+)`)

// SkipReason explains why a workbook row produced no download.
type SkipReason string

const (
	SkipMissingLink SkipReason = "missing_link"
	SkipInvalidLink SkipReason = "invalid_link"
	SkipExists      SkipReason = "exists"
	SkipDuplicate   SkipReason = "duplicate"
)

// Skip records a row that was not downloaded.
type Skip struct {
	Entry  Entry
	File   string
	Reason SkipReason
}

// Plan is the outcome of matching workbook rows against the PDF directory.
type Plan struct {
	Downloads []dispatch.WorkItem
	Skipped   []Skip
}

// NewPlan maps entries to download items. Item IDs are target file names in
// dir, locators are the resolved PDF URLs. Rows whose file already exists, or
// whose file name an earlier row already claimed, are skipped.
func NewPlan(entries []Entry, dir string) Plan {
	var plan Plan
	claimed := map[string]struct{}{}
	for _, entry := range entries {
		if entry.Link == "" {
			plan.Skipped = append(plan.Skipped, Skip{Entry: entry, Reason: SkipMissingLink})
			continue
		}
		link := PDFLink(entry.Link)
		parsed, err := url.Parse(link)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			plan.Skipped = append(plan.Skipped, Skip{Entry: entry, Reason: SkipInvalidLink})
			continue
		}
		name := FileName(entry, parsed)
		if _, dup := claimed[name]; dup {
			plan.Skipped = append(plan.Skipped, Skip{Entry: entry, File: name, Reason: SkipDuplicate})
			continue
		}
		claimed[name] = struct{}{}
		if fileutil.FileExists(filepath.Join(dir, name)) {
			plan.Skipped = append(plan.Skipped, Skip{Entry: entry, File: name, Reason: SkipExists})
			continue
		}
		plan.Downloads = append(plan.Downloads, dispatch.WorkItem{ID: name, Locator: link})
	}
	return plan
}

// PDFLink rewrites arXiv abstract pages to their PDF endpoint. Other links are
// returned unchanged.
func PDFLink(link string) string {
	link = strings.TrimSpace(link)
	if m := arxivAbs.FindStringSubmatch(link); m != nil {
		return fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", m[1])
	}
	return link
}

// FileName derives the local file name for a download: the URL's last path
// segment when it has an extension, otherwise "<title>_<year>.pdf" with the
// title reduced to a safe stem. The result always ends in ".pdf".
func FileName(entry Entry, link *url.URL) string {
	base := textutil.SanitizeFileName(path.Base(link.Path))
	var name string
	if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
		name = base
	} else {
		title := entry.Title
		if title == "" {
			title = fmt.Sprintf("paper_%d", entry.Row)
		}
		name = textutil.SafeStem(title) + "_" + textutil.SafeStem(entry.Year) + ".pdf"
	}
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	return name
}

// Count returns the number of skips with the given reason.
func (p Plan) Count(reason SkipReason) int {
	n := 0
	for _, skip := range p.Skipped {
		if skip.Reason == reason {
			n++
		}
	}
	return n
}
