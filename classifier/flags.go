package classifier

// Flag names consumed by downstream automation.
const (
	FlagSendCourse   = "send_course"
	FlagSendDatabase = "send_database"
	FlagSendGuide    = "send_guide"
)

// DeriveFlags computes delivery flags purely from product codes. Unknown
// products map to no deliveries, so a low-confidence detection never
// triggers fulfillment by accident.
func DeriveFlags(products []string) map[string]bool {
	flags := map[string]bool{
		FlagSendCourse:   false,
		FlagSendDatabase: false,
		FlagSendGuide:    false,
	}
	for _, product := range products {
		switch product {
		case ProductCourse:
			flags[FlagSendCourse] = true
		case ProductDatabase:
			flags[FlagSendDatabase] = true
		case ProductGuide:
			flags[FlagSendGuide] = true
		}
	}
	return flags
}
