package dto

// OverlayInfo describes one render node currently in the scene.
type OverlayInfo struct {
	Name     string  `json:"name"`
	AnchorID string  `json:"anchor_id"`
	Tag      int     `json:"tag"`
	VideoURL string  `json:"video_url"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Progress mirrors the acquisition barrier counters.
type Progress struct {
	Policy    string `json:"policy"`
	Target    int    `json:"target"`
	Settled   int    `json:"settled"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Fired     bool   `json:"fired"`
}

// Status is the coordinator snapshot served by /api/status.
type Status struct {
	State       string   `json:"state"`
	CatalogSize int      `json:"catalog_size"`
	SetSize     int      `json:"set_size"`
	Tags        []int    `json:"tags"`
	Starts      int      `json:"starts"`
	Overlays    int      `json:"overlays"`
	Clearing    bool     `json:"clearing"`
	Acquisition Progress `json:"acquisition"`
	LastError   string   `json:"last_error,omitempty"`
	Viewers     int      `json:"viewers"`
}

// CatalogEntry is one catalog row as served by /api/catalog.
type CatalogEntry struct {
	Tag          int    `json:"tag"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumb"`
	VideoURL     string `json:"movie"`
	Recognizable bool   `json:"recognizable"`
}
