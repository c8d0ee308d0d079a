package mapping

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer names tables, columns and aliases for programmatically built entities
type Namer interface {
	TableName(entity string) string
	ColumnName(property string) string
	PropertyName(column string) string
	JoinTableName(owner, target string) string
	ForeignKeyColumn(relation string) string
	Alias(entity string) string
}

// NamingStrategy tables, columns naming strategy
type NamingStrategy struct {
	TablePrefix   string
	SingularTable bool
}

// TableName convert entity name to table name
func (ns NamingStrategy) TableName(str string) string {
	if ns.SingularTable {
		return ns.TablePrefix + toDBName(str)
	}
	return ns.TablePrefix + inflection.Plural(toDBName(str))
}

// ColumnName convert property name to column name
func (ns NamingStrategy) ColumnName(str string) string {
	return toDBName(str)
}

// PropertyName convert column name to property name
func (ns NamingStrategy) PropertyName(column string) string {
	var (
		b     strings.Builder
		caser = cases.Title(language.Und)
	)
	for _, part := range strings.Split(column, "_") {
		if part == "" {
			continue
		}
		if upper := strings.ToUpper(part); commonInitialismSet[upper] {
			b.WriteString(upper)
			continue
		}
		b.WriteString(caser.String(part))
	}
	return b.String()
}

// JoinTableName join table of a many to many relation
func (ns NamingStrategy) JoinTableName(owner, target string) string {
	name := toDBName(owner) + "_" + toDBName(target)
	if ns.SingularTable {
		return ns.TablePrefix + name
	}
	return ns.TablePrefix + inflection.Plural(name)
}

// ForeignKeyColumn column holding the key of a referenced entity
func (ns NamingStrategy) ForeignKeyColumn(relation string) string {
	return fmt.Sprintf("%s_id", toDBName(relation))
}

// Alias table alias of an entity
func (ns NamingStrategy) Alias(entity string) string {
	return toDBName(entity)
}

var (
	smap sync.Map
	// https://github.com/golang/lint/blob/master/lint.go#L770
	commonInitialisms         = []string{"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM", "XML", "XSRF", "XSS"}
	commonInitialismSet       = map[string]bool{}
	commonInitialismsReplacer *strings.Replacer
)

func init() {
	var (
		commonInitialismsForReplacer []string
		titleCaser                   = cases.Title(language.Und)
	)
	for _, initialism := range commonInitialisms {
		commonInitialismSet[initialism] = true
		commonInitialismsForReplacer = append(commonInitialismsForReplacer, initialism, titleCaser.String(initialism))
	}
	commonInitialismsReplacer = strings.NewReplacer(commonInitialismsForReplacer...)
}

func toDBName(name string) string {
	if name == "" {
		return ""
	} else if v, ok := smap.Load(name); ok {
		return v.(string)
	}

	var (
		value                          = commonInitialismsReplacer.Replace(name)
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	s := buf.String()
	smap.Store(name, s)
	return s
}
