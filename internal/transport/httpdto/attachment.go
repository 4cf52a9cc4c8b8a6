package httpdto

// UpdateAssociationsRequest re-points an attachment at a different page,
// space or workspace. Omitted fields are left unchanged.
type UpdateAssociationsRequest struct {
	PageID      *string `json:"pageId"`
	SpaceID     *string `json:"spaceId"`
	WorkspaceID *string `json:"workspaceId"`
}

// SignedURLResponse is returned for signed-mode downloads.
type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expiresIn"`
}

// StorageInfoResponse echoes the active backend without secrets.
type StorageInfoResponse struct {
	Driver string            `json:"driver"`
	Config map[string]string `json:"config"`
}
