package tfidf

// Counter maintains corpus-level term statistics
type Counter struct {
	N  int64            // total number of documents
	DF map[string]int64 // document frequency per term
	TF map[string]int64 // total occurrences per term across the corpus
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{
		DF: make(map[string]int64),
		TF: make(map[string]int64),
	}
}

// AddDocument updates counts for one document's terms (duplicates included).
func (c *Counter) AddDocument(terms []string) {
	c.N++

	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		c.TF[t]++
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.DF[t]++
	}
}

// TotalDocs returns the total number of documents processed
func (c *Counter) TotalDocs() int64 {
	return c.N
}

// UniqueTerms returns the number of distinct terms
func (c *Counter) UniqueTerms() int {
	return len(c.DF)
}
