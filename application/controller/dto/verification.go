package dto

// SubmitVerificationDTO carries one complete verification attempt. Media is
// base64 encoded; data URL prefixes are accepted and stripped.
type SubmitVerificationDTO struct {
	ChallengeID   string `json:"challengeID" validate:"required"`
	Recipient     string `json:"recipient" validate:"required"`
	Video         string `json:"video" validate:"required"`
	VideoMimeType string `json:"videoMimeType" validate:"required,video_mime"`
	Photo         string `json:"photo" validate:"required"`
	PhotoMimeType string `json:"photoMimeType" validate:"required,image_mime"`
}
