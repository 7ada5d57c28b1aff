package persist

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mr-tron/base58"
	"github.com/segmentio/ksuid"
)

// DBID represents a database ID
type DBID string

// GenerateID generates an application-wide unique ID
func GenerateID() DBID {
	id, err := ksuid.NewRandomWithTime(time.Now())
	if err != nil {
		panic(fmt.Sprintf("error generating id: %s", err))
	}
	return DBID(id.String())
}

func (d DBID) String() string {
	return string(d)
}

// Value implements the driver.Valuer interface for DBID
func (d DBID) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements the sql.Scanner interface for DBID
func (d *DBID) Scan(i interface{}) error {
	if i == nil {
		*d = ""
		return nil
	}
	*d = DBID(i.(string))
	return nil
}

// DBIDList is a slice of DBIDs, used to implement scanner/valuer interfaces
type DBIDList []DBID

// Value implements the driver.Valuer interface for DBIDList
func (l DBIDList) Value() (driver.Value, error) {
	return pq.Array(l).Value()
}

// Scan implements the sql.Scanner interface for DBIDList
func (l *DBIDList) Scan(value interface{}) error {
	return pq.Array(l).Scan(value)
}

// CreationTime represents the time a record was created
type CreationTime time.Time

// Time returns the underlying time.Time
func (c CreationTime) Time() time.Time {
	return time.Time(c)
}

// MarshalJSON returns the time as epoch millis
func (c CreationTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", c.Time().UnixMilli())), nil
}

// Value implements the driver.Valuer interface for CreationTime
func (c CreationTime) Value() (driver.Value, error) {
	if c.Time().IsZero() {
		return time.Now(), nil
	}
	return c.Time(), nil
}

// Scan implements the sql.Scanner interface for CreationTime
func (c *CreationTime) Scan(v interface{}) error {
	if v == nil {
		*c = CreationTime{}
		return nil
	}
	*c = CreationTime(v.(time.Time))
	return nil
}

// LastUpdatedTime represents the time a record was last updated
type LastUpdatedTime time.Time

// Time returns the underlying time.Time
func (l LastUpdatedTime) Time() time.Time {
	return time.Time(l)
}

// MarshalJSON returns the time as epoch millis
func (l LastUpdatedTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", l.Time().UnixMilli())), nil
}

// Value implements the driver.Valuer interface for LastUpdatedTime
func (l LastUpdatedTime) Value() (driver.Value, error) {
	return time.Now(), nil
}

// Scan implements the sql.Scanner interface for LastUpdatedTime
func (l *LastUpdatedTime) Scan(v interface{}) error {
	if v == nil {
		*l = LastUpdatedTime{}
		return nil
	}
	*l = LastUpdatedTime(v.(time.Time))
	return nil
}

// NullString represents a string that may be null in the database
type NullString string

func (n NullString) String() string {
	return string(n)
}

// Value implements the driver.Valuer interface for NullString
func (n NullString) Value() (driver.Value, error) {
	if n == "" {
		return "", nil
	}
	return n.String(), nil
}

// Scan implements the sql.Scanner interface for NullString
func (n *NullString) Scan(value interface{}) error {
	if value == nil {
		*n = NullString("")
		return nil
	}
	*n = NullString(value.(string))
	return nil
}

// NullInt32 represents an int32 that may be null in the database
type NullInt32 int32

// Int32 returns the underlying int32
func (n NullInt32) Int32() int32 {
	return int32(n)
}

// Value implements the driver.Valuer interface for NullInt32
func (n NullInt32) Value() (driver.Value, error) {
	return int64(n), nil
}

// Scan implements the sql.Scanner interface for NullInt32
func (n *NullInt32) Scan(value interface{}) error {
	if value == nil {
		*n = NullInt32(0)
		return nil
	}
	*n = NullInt32(value.(int64))
	return nil
}

// NullInt64 represents an int64 that may be null in the database
type NullInt64 int64

// Int64 returns the underlying int64
func (n NullInt64) Int64() int64 {
	return int64(n)
}

// Value implements the driver.Valuer interface for NullInt64
func (n NullInt64) Value() (driver.Value, error) {
	return int64(n), nil
}

// Scan implements the sql.Scanner interface for NullInt64
func (n *NullInt64) Scan(value interface{}) error {
	if value == nil {
		*n = NullInt64(0)
		return nil
	}
	*n = NullInt64(value.(int64))
	return nil
}

// NullBool represents a bool that may be null in the database
type NullBool bool

// Bool returns the underlying bool
func (n NullBool) Bool() bool {
	return bool(n)
}

// Value implements the driver.Valuer interface for NullBool
func (n NullBool) Value() (driver.Value, error) {
	return bool(n), nil
}

// Scan implements the sql.Scanner interface for NullBool
func (n *NullBool) Scan(value interface{}) error {
	if value == nil {
		*n = NullBool(false)
		return nil
	}
	*n = NullBool(value.(bool))
	return nil
}

// Address represents a base58-encoded chain address
type Address string

func (a Address) String() string {
	return string(a)
}

// Valid reports whether the address decodes to 32 bytes of base58
func (a Address) Valid() bool {
	decoded, err := base58.Decode(a.String())
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// Value implements the driver.Valuer interface for Address
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements the sql.Scanner interface for Address
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address("")
		return nil
	}
	*a = Address(value.(string))
	return nil
}

// AddressList is a slice of Addresses, used to implement scanner/valuer interfaces
type AddressList []Address

// Value implements the driver.Valuer interface for AddressList
func (l AddressList) Value() (driver.Value, error) {
	return pq.Array(l).Value()
}

// Scan implements the sql.Scanner interface for AddressList
func (l *AddressList) Scan(value interface{}) error {
	return pq.Array(l).Scan(value)
}

const (
	// RoleUser is the default role of a registered user
	RoleUser Role = "USER"
	// RoleGov is the role of a government reviewer
	RoleGov Role = "GOV"
	// RoleAdmin is the role of a platform administrator
	RoleAdmin Role = "ADMIN"
)

// Role represents the role of a user in the system
type Role string

func (r Role) String() string {
	return string(r)
}

// Value implements the driver.Valuer interface for Role
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan implements the sql.Scanner interface for Role
func (r *Role) Scan(value interface{}) error {
	if value == nil {
		*r = Role("")
		return nil
	}
	*r = Role(value.(string))
	return nil
}

// RoleList is a slice of Roles, used to implement scanner/valuer interfaces
type RoleList []Role

// Value implements the driver.Valuer interface for RoleList
func (l RoleList) Value() (driver.Value, error) {
	return pq.Array(l).Value()
}

// Scan implements the sql.Scanner interface for RoleList
func (l *RoleList) Scan(value interface{}) error {
	return pq.Array(l).Scan(value)
}
