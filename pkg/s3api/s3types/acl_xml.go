package s3types

import (
	"encoding/xml"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

const (
	xmlnsS3  = "http://s3.amazonaws.com/doc/2006-03-01/"
	xmlnsXSI = "http://www.w3.org/2001/XMLSchema-instance"
)

// AccessControlPolicy is the XML wire form of an ACL.
// This is the top-level document for GET/PUT ?acl requests and responses.
type AccessControlPolicy struct {
	XMLName           xml.Name             `xml:"AccessControlPolicy"`
	Xmlns             string               `xml:"xmlns,attr,omitempty"`
	Owner             Owner                `xml:"Owner"`
	AccessControlList AccessControlListXML `xml:"AccessControlList"`
}

// AccessControlListXML is the XML wrapper for grants in AccessControlPolicy
type AccessControlListXML struct {
	Grants []GrantXML `xml:"Grant"`
}

// GrantXML represents a grant in XML format with proper namespace attributes
type GrantXML struct {
	Grantee    GranteeXML `xml:"Grantee"`
	Permission string     `xml:"Permission"`
}

// GranteeXML represents a grantee in XML format with xsi:type attribute
type GranteeXML struct {
	XMLName     xml.Name `xml:"Grantee"`
	Xmlns       string   `xml:"xmlns:xsi,attr,omitempty"`
	XsiType     string   `xml:"xsi:type,attr,omitempty"`
	ID          string   `xml:"ID,omitempty"`
	DisplayName string   `xml:"DisplayName,omitempty"`
	URI         string   `xml:"URI,omitempty"`
}

// UnmarshalXML decodes a Grantee element by hand. The struct tags above
// produce the prefixed xsi:type attribute on marshal, but on unmarshal
// the decoder resolves the attribute to its local name, so the type
// discriminator is matched by local name here. This accepts documents
// whether or not they declare the xsi prefix.
func (g *GranteeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "type" {
			g.XsiType = attr.Value
		}
	}

	var fields struct {
		ID          string `xml:"ID"`
		DisplayName string `xml:"DisplayName"`
		URI         string `xml:"URI"`
	}
	if err := d.DecodeElement(&fields, &start); err != nil {
		return err
	}
	g.ID = fields.ID
	g.DisplayName = fields.DisplayName
	g.URI = fields.URI
	return nil
}

// ToAccessControlPolicy converts an ACL to the XML document form,
// preserving grant order.
func (acl *AccessControlList) ToAccessControlPolicy() *AccessControlPolicy {
	if acl == nil {
		return nil
	}

	policy := &AccessControlPolicy{
		Xmlns: xmlnsS3,
		Owner: acl.Owner,
	}

	for _, grant := range acl.Grants {
		grantXML := GrantXML{
			Permission: string(grant.Permission),
			Grantee: GranteeXML{
				Xmlns: xmlnsXSI,
			},
		}

		switch grant.Grantee.Type {
		case GranteeTypeCanonicalUser:
			grantXML.Grantee.XsiType = string(GranteeTypeCanonicalUser)
			grantXML.Grantee.ID = grant.Grantee.ID
			grantXML.Grantee.DisplayName = grant.Grantee.DisplayName
		case GranteeTypeGroup:
			grantXML.Grantee.XsiType = string(GranteeTypeGroup)
			grantXML.Grantee.URI = grant.Grantee.URI
		}

		policy.AccessControlList.Grants = append(policy.AccessControlList.Grants, grantXML)
	}

	return policy
}

// ACLFromXML parses and validates an AccessControlPolicy document.
// Well-formedness and schema violations fail with MalformedACLError;
// unknown group URIs fail with InvalidArgument, matching header-form
// grantee resolution; email grantees fail with NotImplemented.
func ACLFromXML(body []byte) (*AccessControlList, error) {
	var policy AccessControlPolicy
	if err := xml.Unmarshal(body, &policy); err != nil {
		return nil, s3err.ErrMalformedACLError
	}

	if policy.Owner.ID == "" {
		return nil, s3err.ErrMalformedACLError
	}

	acl := NewACL(policy.Owner)
	for _, grantXML := range policy.AccessControlList.Grants {
		var grantee Grantee
		switch GranteeType(grantXML.Grantee.XsiType) {
		case GranteeTypeCanonicalUser:
			if grantXML.Grantee.ID == "" {
				return nil, s3err.ErrMalformedACLError
			}
			grantee = Grantee{
				Type:        GranteeTypeCanonicalUser,
				ID:          grantXML.Grantee.ID,
				DisplayName: grantXML.Grantee.DisplayName,
			}
		case GranteeTypeGroup:
			g, err := GroupGranteeFromURI(grantXML.Grantee.URI)
			if err != nil {
				return nil, err
			}
			grantee = g
		case GranteeTypeEmail:
			return nil, s3err.ErrNotImplemented
		default:
			return nil, s3err.ErrMalformedACLError
		}

		grant, err := NewGrant(grantee, grantXML.Permission)
		if err != nil {
			return nil, s3err.ErrMalformedACLError
		}
		acl.Grants = append(acl.Grants, grant)
	}

	return acl, nil
}
