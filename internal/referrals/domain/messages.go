package domain

// User-visible messages. Clients match on these strings.
const (
	MsgLeadNotFound         = "Lead not found"
	MsgReferralNotFound     = "Referral not found"
	MsgAgentNotFound        = "Agent not found"
	MsgNotLeadOwner         = "Access denied. You can only refer leads that are assigned to you."
	MsgTargetRequired       = "referred_to_agent_id is required"
	MsgSelfReferral         = "You cannot refer a lead to yourself."
	MsgPendingHandoffExists = "A pending referral already exists for this lead."
	MsgNotConfirmRecipient  = "Access denied. You can only confirm referrals sent to you."
	MsgNotRejectRecipient   = "Access denied. You can only reject referrals sent to you."
	MsgHandoffStale         = "The lead has been reassigned since this referral was sent."
)
