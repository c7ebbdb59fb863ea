// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

// Role is the account type of a user. Roles form a strict total order:
//
//	consumer < business < reseller < admin
//
// A role satisfies every requirement for a role ranked at or below it.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleBusiness Role = "business"
	RoleReseller Role = "reseller"
	RoleAdmin    Role = "admin"
)

// roleOrder lists roles from lowest to highest rank.
var roleOrder = []Role{RoleConsumer, RoleBusiness, RoleReseller, RoleAdmin}

// Rank returns the position of the role in the hierarchy, or -1 for an
// unknown role.
func (r Role) Rank() int {
	for i, candidate := range roleOrder {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// AtLeast reports whether r ranks at or above min. Unknown roles never
// satisfy anything.
func (r Role) AtLeast(min Role) bool {
	rank := r.Rank()
	if rank < 0 || min.Rank() < 0 {
		return false
	}
	return rank >= min.Rank()
}

// TenantBound reports whether users with this role belong to exactly one tenant.
func (r Role) TenantBound() bool {
	return r == RoleBusiness || r == RoleConsumer
}

// Roles returns all roles, lowest first.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}
