package domain

// IssueKind tags a checkout issue.
type IssueKind string

const (
	IssueRemoved         IssueKind = "removed"
	IssueQuantityClamped IssueKind = "quantity-clamped"
	IssuePriceInvalid    IssueKind = "price-invalid"
	IssueUnvalidatable   IssueKind = "unvalidatable"
)

// CheckoutIssue is produced fresh on each checkout attempt and never persisted.
type CheckoutIssue struct {
	Kind      IssueKind `json:"kind"`
	ProductID string    `json:"productId"`
	Message   string    `json:"message"`
}
