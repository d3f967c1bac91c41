package validator

func init() {
	validate.RegisterValidation("video_mime", validateVideoMime)
	validate.RegisterValidation("image_mime", validateImageMime)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
