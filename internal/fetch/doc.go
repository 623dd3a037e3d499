// Package fetch downloads the PDFs listed in the literature-review workbook.
//
// ReadWorkbook extracts Title/Year/Link rows, NewPlan turns them into download
// work items (rewriting arXiv abstract links and deriving file names), and
// Downloader is the dispatch.Processor that streams each link into the PDF
// directory. Downloads run through the same dispatcher and retrier as
// summarization.
package fetch
