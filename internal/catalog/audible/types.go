package audible

// bookPayload is the identifier-lookup response.
type bookPayload struct {
	ASIN             string          `json:"asin"`
	Title            string          `json:"title"`
	Subtitle         string          `json:"subtitle"`
	Authors          []personPayload `json:"authors"`
	Narrators        []personPayload `json:"narrators"`
	Image            string          `json:"image"`
	ReleaseDate      string          `json:"releaseDate"`
	SeriesPrimary    *seriesPayload  `json:"seriesPrimary"`
	SeriesSecondary  *seriesPayload  `json:"seriesSecondary"`
	PublisherName    string          `json:"publisherName"`
	RuntimeLengthMin int             `json:"runtimeLengthMin"`
	Region           string          `json:"region"`
}

type personPayload struct {
	ASIN string `json:"asin"`
	Name string `json:"name"`
}

type seriesPayload struct {
	ASIN     string `json:"asin"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

// productResponse wraps the catalog product endpoint.
type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ASIN          string                `json:"asin"`
	Title         string                `json:"title"`
	Relationships []relationshipPayload `json:"relationships"`
	Series        []productSeries       `json:"series"`
}

type relationshipPayload struct {
	ASIN                  string `json:"asin"`
	RelationshipToProduct string `json:"relationship_to_product"` // "child" or "parent"
	RelationshipType      string `json:"relationship_type"`       // "series", "component", ...
	Sequence              string `json:"sequence"`
	Sort                  string `json:"sort"`
	Title                 string `json:"title"`
}

type productSeries struct {
	ASIN     string `json:"asin"`
	Title    string `json:"title"`
	Sequence string `json:"sequence"`
}

// simsResponse wraps the similar-products endpoint.
type simsResponse struct {
	SimilarProducts []struct {
		ASIN string `json:"asin"`
	} `json:"similar_products"`
}
