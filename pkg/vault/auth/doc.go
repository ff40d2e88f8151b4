/*
Package auth provides the workload identity login methods the broker uses
to obtain its own Vault session.

Each method knows its Vault auth mount and produces the login payload for
auth/<mount>/login. The token manager runs a method only after the static
and development token strategies have been ruled out.

# Supported Authentication Methods

  - jwt.go: Kubernetes and JWT auth backends, fed by an identity assertion
    (a projected service account token or a TokenRequest token)
  - aws.go: AWS IAM auth (IRSA, EC2 instance profiles)

# JWT / Kubernetes

	method := &auth.JWTMethod{
	    Role:      "console-broker",
	    MountPath: "kubernetes",
	    Source:    token.NewMountedProvider("", log),
	}
	data, err := method.LoginData(ctx)

# AWS IAM

	method := &auth.AWSIAMMethod{
	    Role:   "console-broker",
	    Region: "us-west-2",
	}
	data, err := method.LoginData(ctx)
*/
package auth
