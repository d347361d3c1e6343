package constants

// EntryType names one of the three entry logs.
type EntryType string

// ActivityLevel classifies a calendar day by entry count.
type ActivityLevel string

// MilestoneType identifies a graduation stage.
type MilestoneType string

const (
	EntryTypeMood       EntryType = "mood"
	EntryTypeReflection EntryType = "reflection"
	EntryTypeGratitude  EntryType = "gratitude"

	ActivityNone   ActivityLevel = "none"
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"

	MilestoneFoundation  MilestoneType = "foundation"
	MilestoneConsistency MilestoneType = "consistency"
	MilestoneGraduation  MilestoneType = "graduation"

	// Milestone thresholds in total active days
	FoundationThreshold  = 15
	ConsistencyThreshold = 30
	GraduationThreshold  = 45

	// MaxStreakScanDays caps the backward streak scan. A streak never reports more than this.
	MaxStreakScanDays = 30

	// NearGraduationPercent is the progress percentage at which graduation is "near".
	NearGraduationPercent = 75.0

	// Graduation settings defaults
	DefaultTargetGraduationDays  = GraduationThreshold
	DefaultShowTransitionPrompts = true

	// Transition prompt ids
	PromptEncourageConsistency = "encourage-consistency"
	PromptSuggestOffline       = "suggest-offline"
	PromptGraduationReady      = "graduation-ready"
)

// DefaultOfflineActivities seeds GraduationSettings.PreferredOfflineActivities.
var DefaultOfflineActivities = []string{
	"family dinner conversation",
	"gratitude jar",
	"evening walk",
}
