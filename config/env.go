package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Environment overrides are declared as `env` tags on the config structs
// and all share the RECEIPTKIT_ prefix, e.g.
//
//	RECEIPTKIT_STORAGE_ADAPTER=redis
//	RECEIPTKIT_RULES_PATH=/etc/receiptkit/rules.yaml
//	RECEIPTKIT_SERVER_READ_TIMEOUT=15s
//	RECEIPTKIT_SECURITY_API_KEYS=key-one,key-two
//
// Durations use Go syntax, lists are comma-separated, and attribute maps
// take key=value pairs.

// envBinding ties one settable config field to its variable name.
type envBinding struct {
	name  string
	field reflect.Value
	meta  reflect.StructField
}

// loadFromEnv applies every set RECEIPTKIT_* variable to cfg.
func loadFromEnv(cfg *Config) error {
	var bindings []envBinding
	collectBindings(reflect.ValueOf(cfg).Elem(), &bindings)

	for _, b := range bindings {
		raw, ok := os.LookupEnv(b.name)
		if !ok || raw == "" {
			continue
		}
		if err := assignEnvValue(b.field, b.meta, raw); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}

// collectBindings walks the config struct tree gathering `env`-tagged leaf
// fields. Fields without a tag (the adapter configs among them) have no
// environment override and are skipped.
func collectBindings(v reflect.Value, out *[]envBinding) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		meta := t.Field(i)

		if field.Kind() == reflect.Struct {
			collectBindings(field, out)
			continue
		}
		tag := meta.Tag.Get("env")
		if tag == "" || !field.CanSet() {
			continue
		}
		*out = append(*out, envBinding{name: tag, field: field, meta: meta})
	}
}

// assignEnvValue parses raw into the field. The supported shapes are the
// ones the config actually uses: strings (Environment and Driver included),
// bools, ints, durations, string lists, and string maps.
func assignEnvValue(field reflect.Value, meta reflect.StructField, raw string) error {
	if meta.Type == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%q is not a duration (use forms like 30s or 5m)", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%q is not a boolean", raw)
		}
		field.SetBool(v)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer", raw)
		}
		field.SetInt(v)

	case reflect.Slice:
		if meta.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("field %s: only string lists can come from the environment", meta.Name)
		}
		parts := strings.Split(raw, ",")
		list := reflect.MakeSlice(meta.Type, len(parts), len(parts))
		for i, p := range parts {
			list.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(list)

	case reflect.Map:
		if meta.Type.Key().Kind() != reflect.String || meta.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("field %s: only string maps can come from the environment", meta.Name)
		}
		m := reflect.MakeMap(meta.Type)
		for _, pair := range strings.Split(raw, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("%q is not a key=value entry", pair)
			}
			m.SetMapIndex(reflect.ValueOf(kv[0]), reflect.ValueOf(kv[1]))
		}
		field.Set(m)

	default:
		return fmt.Errorf("field %s cannot be set from the environment", meta.Name)
	}

	return nil
}
