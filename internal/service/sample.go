package service

import _ "embed"

//go:embed sample_corpus.txt
var sampleCorpus string

// SampleCorpus is the document ingested when an upload carries neither a
// file nor text.
func SampleCorpus() string {
	return sampleCorpus
}
