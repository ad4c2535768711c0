package config

// RoutePolicy describes who may call a named route.
type RoutePolicy struct {
	Public bool
	// Roles lists the roles allowed to call the route; empty means any
	// authenticated user.
	Roles []string
}

const (
	roleCustomer = "CUSTOMER"
	roleWorker   = "WORKER"
	roleAdmin    = "ADMIN"
)

var authenticated = RoutePolicy{}

// EndpointSecurityConfig maps route names to their access policy
var EndpointSecurityConfig = map[string]RoutePolicy{
	"health":     {Public: true},
	"auth.login": {Public: true},

	"bookings.auto":              {Roles: []string{roleCustomer}},
	"bookings.create":            {Roles: []string{roleCustomer}},
	"bookings.list":              {Roles: []string{roleAdmin}},
	"bookings.mine":              {Roles: []string{roleCustomer, roleWorker}},
	"bookings.get":               authenticated,
	"bookings.assignments":       authenticated,
	"bookings.worker.pending":    {Roles: []string{roleWorker, roleAdmin}},
	"bookings.status":            {Roles: []string{roleAdmin}},
	"bookings.assignment.accept": {Roles: []string{roleWorker}},
	"bookings.assignment.reject": {Roles: []string{roleWorker}},
	"bookings.worker.reject":     {Roles: []string{roleCustomer}},
	"bookings.accept":            authenticated,
	"bookings.reject":            authenticated,
	"bookings.start":             authenticated,
	"bookings.complete":          authenticated,
	"bookings.cancel":            authenticated,
	"bookings.delete":            {Roles: []string{roleAdmin}},

	"wallet.get":            authenticated,
	"wallet.transactions":   authenticated,
	"wallet.deposit":        authenticated,
	"wallet.withdraw":       authenticated,
	"wallet.escrow.deposit": authenticated,
	"wallet.escrow.release": authenticated,
	"wallet.escrow.refund":  authenticated,

	"negotiations.create":  {Roles: []string{roleCustomer}},
	"negotiations.respond": {Roles: []string{roleWorker}},
	"negotiations.cancel":  {Roles: []string{roleCustomer}},
	"negotiations.mine":    {Roles: []string{roleCustomer, roleWorker}},

	// gRPC full method names
	"/grpc.health.v1.Health/Check":                                   {Public: true},
	"/grpc.health.v1.Health/List":                                    {Public: true},
	"/grpc.health.v1.Health/Watch":                                   {Public: true},
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      {Roles: []string{roleAdmin}},
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": {Roles: []string{roleAdmin}},
}

// GetRoutePolicy returns the policy for a route. Unknown routes require
// authentication.
func GetRoutePolicy(name string) RoutePolicy {
	if p, ok := EndpointSecurityConfig[name]; ok {
		return p
	}
	return authenticated
}

// Allows reports whether role may call a route with this policy.
func (p RoutePolicy) Allows(role string) bool {
	if p.Public || len(p.Roles) == 0 {
		return true
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
