package port

// Tokenizer normalises text into terms and estimates model token counts.
type Tokenizer interface {
	// Tokenize returns lower-cased content terms with stopwords removed.
	Tokenize(text string) []string

	// CountTokens approximates how many model tokens text occupies.
	CountTokens(text string) int
}
