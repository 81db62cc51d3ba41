package handlers

type StyleLossResponse struct {
	Loss          float64 `json:"loss"`
	Normalization string  `json:"normalization"`
}

type MaskResponse struct {
	Class  int    `json:"class"`
	Name   string `json:"name"`
	Pixels int    `json:"pixels"`
	Color  string `json:"color"`
	PNG    string `json:"png"`
}

type SegmentResponse struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Silhouette bool           `json:"silhouette"`
	Masks      []MaskResponse `json:"masks"`
}
