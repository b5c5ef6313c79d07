package domain

import (
	"strings"

	dErrors "coref/pkg/domain-errors"
)

// Role identifies one of the five USEF market-role participant types.
type Role string

const (
	RoleAggregator              Role = "AGR"
	RoleBalanceResponsibleParty Role = "BRP"
	RoleCommonReferenceOperator Role = "CRO"
	RoleDistributionSystemOp    Role = "DSO"
	RoleMeterDataCompany        Role = "MDC"
)

// Roles lists every supported role in a stable order.
func Roles() []Role {
	return []Role{
		RoleAggregator,
		RoleBalanceResponsibleParty,
		RoleCommonReferenceOperator,
		RoleDistributionSystemOp,
		RoleMeterDataCompany,
	}
}

// ParseRole resolves a role from its wire spelling (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAggregator:
		return RoleAggregator, nil
	case RoleBalanceResponsibleParty:
		return RoleBalanceResponsibleParty, nil
	case RoleCommonReferenceOperator:
		return RoleCommonReferenceOperator, nil
	case RoleDistributionSystemOp:
		return RoleDistributionSystemOp, nil
	case RoleMeterDataCompany:
		return RoleMeterDataCompany, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown market role %q", s)
	}
}

// Participant is a market party registered under a single role. Identity is the
// internet domain name; stored spelling is preserved, comparisons against
// update payloads are case-insensitive.
type Participant struct {
	Role   Role   `json:"role"`
	Domain string `json:"domain"`
}

// SameDomain compares two participant domains the way update payloads are
// matched: case-insensitively.
func SameDomain(a, b string) bool {
	return strings.EqualFold(a, b)
}
