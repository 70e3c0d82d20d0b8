package service

// state names the pipeline position in log records. Handling only moves forward.
type state string

const (
	stateClassified     state = "classified"
	stateScraping       state = "scraping"
	stateScraped        state = "scraped"
	stateDirectResolved state = "direct_resolved"
	stateDownloading    state = "downloading"
	stateDownloaded     state = "downloaded"
	stateUploading      state = "uploading"
	stateErrored        state = "errored"
)
