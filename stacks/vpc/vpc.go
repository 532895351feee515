// Package vpc provides the network every data stack is placed into: either
// an existing VPC found by context lookup or a new two-tier VPC.
package vpc

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

// Config selects the VPC. VpcName wins over UseDefault; with neither set a
// new VPC is created.
type Config struct {
	VpcName     string `context:"vpc_name"`
	UseDefault  bool   `context:"use_default_vpc"`
	Cidr        string `context:"vpc_cidr"`
	MaxAzs      int    `context:"vpc_max_azs"`
	NatGateways int    `context:"vpc_nat_gateways"`
}

// DefaultConfig returns a three-AZ VPC in 10.0.0.0/21.
func DefaultConfig() Config {
	return Config{
		Cidr:        "10.0.0.0/21",
		MaxAzs:      3,
		NatGateways: 1,
	}
}

// Lookup reports whether the VPC comes from a context lookup, which needs
// a stack with a concrete account and region.
func (c Config) Lookup() bool {
	return c.VpcName != "" || c.UseDefault
}

// Validate checks the CIDR and AZ count of a created VPC. A lookup needs
// neither.
func (c Config) Validate() error {
	if c.Lookup() {
		return nil
	}
	var errs []error
	if c.Cidr != "" {
		if _, err := netip.ParsePrefix(c.Cidr); err != nil {
			errs = append(errs, fmt.Errorf(`context key "vpc_cidr": %w`, err))
		}
	}
	if c.MaxAzs < 0 || c.MaxAzs > 6 {
		errs = append(errs, errors.New(`context key "vpc_max_azs" must be between 1 and 6`))
	}
	if c.NatGateways < 0 {
		errs = append(errs, errors.New(`context key "vpc_nat_gateways" must not be negative`))
	}
	return errors.Join(errs...)
}

// VpcStackProps configures NewVpcStack.
type VpcStackProps struct {
	awscdk.StackProps
	Config Config
}

// VpcStack owns or imports the VPC the other stacks run in.
type VpcStack struct {
	awscdk.Stack
	Vpc awsec2.IVpc
}

// NewVpcStack creates the VPC, or looks up a named or the default VPC.
func NewVpcStack(scope constructs.Construct, id string, props *VpcStackProps) *VpcStack {
	cfg := DefaultConfig()
	var sprops *awscdk.StackProps
	if props != nil {
		cfg = props.Config
		sprops = &props.StackProps
	}

	stack := stackutil.NewStack(scope, id, sprops)
	vpc := Resolve(stack, "VPC", cfg)

	stackutil.Output(stack, "VPCID", vpc.VpcId())

	return &VpcStack{Stack: stack, Vpc: vpc}
}

// Resolve looks up or creates the VPC inside scope.
func Resolve(scope constructs.Construct, id string, cfg Config) awsec2.IVpc {
	switch {
	case cfg.VpcName != "":
		return awsec2.Vpc_FromLookup(scope, jsii.String(id), &awsec2.VpcLookupOptions{
			VpcName: jsii.String(cfg.VpcName),
		})
	case cfg.UseDefault:
		return awsec2.Vpc_FromLookup(scope, jsii.String(id), &awsec2.VpcLookupOptions{
			IsDefault: jsii.Bool(true),
		})
	}

	defaults := DefaultConfig()
	if cfg.Cidr == "" {
		cfg.Cidr = defaults.Cidr
	}
	if cfg.MaxAzs <= 0 {
		cfg.MaxAzs = defaults.MaxAzs
	}
	// private subnets route through NAT, so at least one gateway is required
	if cfg.NatGateways <= 0 {
		cfg.NatGateways = defaults.NatGateways
	}

	return awsec2.NewVpc(scope, jsii.String(id), &awsec2.VpcProps{
		IpAddresses: awsec2.IpAddresses_Cidr(jsii.String(cfg.Cidr)),
		MaxAzs:      stackutil.Number(cfg.MaxAzs),
		NatGateways: stackutil.Number(cfg.NatGateways),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				Name:       jsii.String("Public"),
				SubnetType: awsec2.SubnetType_PUBLIC,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String("Private"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(24),
			},
		},
		GatewayEndpoints: &map[string]*awsec2.GatewayVpcEndpointOptions{
			"S3": {
				Service: awsec2.GatewayVpcEndpointAwsService_S3(),
			},
		},
	})
}
