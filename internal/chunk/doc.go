// Package chunk implements deterministic text segmentation: it splits long
// content on the nearest semantic boundary to a target size, carries an
// overlap region between neighbours, and titles each piece from the nearest
// preceding Markdown header. The boundary-search technique (prefer a double
// newline, fall back through single newline, sentence end, then whitespace)
// is adapted from the sentence-splitting approach of an extractive
// summarizer in the wider corpus, repurposed here for chunk boundaries
// instead of sentence scoring.
package chunk
