package backend

// Settings is the persisted client configuration as stored by the service.
// Nullable fields stay nil when the service has never seen a value.
type Settings struct {
	K              *int     `json:"k"`
	SelectedIndex  *string  `json:"selectedIndex"`
	URL            string   `json:"url"`
	Threshold      *float64 `json:"threshold"`
	SelectedDevice string   `json:"selectedDevice"`
	RecentPaths    []string `json:"recent_paths"`
	Warnings       []string `json:"warnings,omitempty"`
}

// SaveSettingsRequest is the body of POST settings.
type SaveSettingsRequest struct {
	K              *int     `json:"k"`
	SelectedIndex  *string  `json:"selectedIndex"`
	URL            string   `json:"url"`
	Threshold      *float64 `json:"threshold"`
	SelectedDevice string   `json:"selectedDevice"`
	SavedURLs      []string `json:"savedUrls"`
}

// SaveSettingsResponse is the reply to POST settings.
type SaveSettingsResponse struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// PredictRequest is the body of POST predict. URL holds the primary corpus
// location followed by fallback locations from the recent-path history.
type PredictRequest struct {
	Query          string   `json:"query"`
	SelectedIndex  string   `json:"selectedIndex"`
	URL            []string `json:"url"`
	Threshold      float64  `json:"threshold"`
	SelectedDevice string   `json:"selectedDevice"`
	K              int      `json:"k"`
	Faces          []string `json:"faces,omitempty"`
}

// PredictImage is one result image; Data is base64 encoded.
type PredictImage struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// PredictResponse is the reply to POST predict. Query is the query the
// service actually resolved, which may differ from the submitted one.
type PredictResponse struct {
	Query    string         `json:"query"`
	Images   []PredictImage `json:"images"`
	Warnings []string       `json:"warnings,omitempty"`
}

// FolderSelection is the reply to GET select-folder.
type FolderSelection struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// faceEnvelope is embedded in every face endpoint response.
type faceEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// KnownFacesResponse is the reply to GET face/known-faces.
type KnownFacesResponse struct {
	faceEnvelope
	Faces []string `json:"faces"`
}

// FaceMetadata is the reply to GET face/metadata.
type FaceMetadata struct {
	faceEnvelope
	HasMetadata bool     `json:"hasMetadata"`
	Faces       []string `json:"faces"`
}

// RegisterFaceRequest is the body of POST face/register. ImageBase64 is a
// data URL, as produced by a browser FileReader.
type RegisterFaceRequest struct {
	Name        string `json:"name"`
	ImageBase64 string `json:"imageBase64"`
}

// ScanRequest is the body of POST face/scan.
type ScanRequest struct {
	Folder      string   `json:"folder"`
	TargetFaces []string `json:"targetFaces"`
	Threshold   float64  `json:"threshold"`
}

// RecognizeRequest is the body of POST face/recognize.
type RecognizeRequest struct {
	InputFolder  string   `json:"inputFolder"`
	OutputFolder string   `json:"outputFolder,omitempty"`
	TargetFaces  []string `json:"targetFaces"`
	Threshold    float64  `json:"threshold"`
}

// ScanResult is the reply to both face/scan and face/recognize. The two
// endpoints name their counters differently; use Total and Matched.
type ScanResult struct {
	faceEnvelope
	Scanned         int            `json:"scanned,omitempty"`
	TotalScanned    int            `json:"totalScanned,omitempty"`
	MatchedCount    int            `json:"matched,omitempty"`
	RecognizedCount int            `json:"recognizedCount,omitempty"`
	OutputFolder    string         `json:"outputFolder,omitempty"`
	Breakdown       map[string]int `json:"breakdown"`
	Errors          []string       `json:"errors"`
}

// Total returns the number of scanned images.
func (r *ScanResult) Total() int {
	return max(r.Scanned, r.TotalScanned)
}

// Matched returns the number of images that matched a target face.
func (r *ScanResult) Matched() int {
	return max(r.MatchedCount, r.RecognizedCount)
}

// FaceActionResponse is the reply to face/register and face/delete.
type FaceActionResponse struct {
	faceEnvelope
}

// Text returns the server message of a successful action.
func (r *FaceActionResponse) Text() string {
	return r.Message
}
