/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/modern-go/reflect2"
)

var durationType = reflect.TypeOf(time.Duration(0))

type FnObj struct {
	Fn   func(reflect.StructField, reflect.Value, interface{}) error
	Data interface{}
}

// DoTagFunc walks the exported fields of the struct v points to and applies every fn to
// each of them. v must be a non-nil pointer.
func DoTagFunc(v interface{}, fns []FnObj) error {
	if reflect2.IsNil(v) {
		return fmt.Errorf("DoTagFunc: nil value")
	}

	vType := reflect2.TypeOf(v).Type1()
	if vType.Kind() != reflect.Ptr || vType.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("DoTagFunc: %s is not a pointer to struct", vType)
	}

	indirect := reflect.Indirect(reflect.ValueOf(v))
	for i := 0; i < indirect.NumField(); i++ {
		fieldStruct := vType.Elem().Field(i)
		if !fieldStruct.IsExported() {
			continue
		}
		for _, f := range fns {
			if err := f.Fn(fieldStruct, indirect.Field(i), f.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetDefaultValueIfNil fills a zero field from its `default` tag. Nested structs and
// pointers to structs are walked recursively; nil pointers to scalars are allocated.
func SetDefaultValueIfNil(structField reflect.StructField, vValue reflect.Value, _ interface{}) error {
	if !vValue.CanSet() {
		return nil
	}
	tag, hasDefault := structField.Tag.Lookup("default")

	switch vValue.Kind() {
	case reflect.Struct:
		t := vValue.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := SetDefaultValueIfNil(t.Field(i), vValue.Field(i), nil); err != nil {
				return err
			}
		}
		return nil
	case reflect.Ptr:
		elem := structField.Type.Elem()
		if elem.Kind() == reflect.Struct {
			if vValue.IsNil() {
				vValue.Set(reflect.New(elem))
			}
			return SetDefaultValueIfNil(reflect.StructField{Name: structField.Name, Type: elem}, vValue.Elem(), nil)
		}
		if !hasDefault || !vValue.IsNil() {
			return nil
		}
		ptr := reflect.New(elem)
		if err := setScalar(structField.Name, ptr.Elem(), tag); err != nil {
			return err
		}
		vValue.Set(ptr)
		return nil
	}

	if !hasDefault || !vValue.IsZero() {
		return nil
	}
	return setScalar(structField.Name, vValue, tag)
}

func setScalar(name string, vValue reflect.Value, tag string) error {
	if vValue.Type() == durationType {
		d, err := time.ParseDuration(tag)
		if err != nil {
			return fmt.Errorf("field %s: invalid duration default %q: %w", name, tag, err)
		}
		vValue.SetInt(int64(d))
		return nil
	}

	switch vValue.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(tag, 10, vValue.Type().Bits())
		if err != nil {
			return fmt.Errorf("field %s: invalid int default %q: %w", name, tag, err)
		}
		vValue.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(tag, 10, vValue.Type().Bits())
		if err != nil {
			return fmt.Errorf("field %s: invalid uint default %q: %w", name, tag, err)
		}
		vValue.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(tag, vValue.Type().Bits())
		if err != nil {
			return fmt.Errorf("field %s: invalid float default %q: %w", name, tag, err)
		}
		vValue.SetFloat(v)
	case reflect.String:
		vValue.SetString(tag)
	case reflect.Bool:
		v, err := strconv.ParseBool(tag)
		if err != nil {
			return fmt.Errorf("field %s: invalid bool default %q: %w", name, tag, err)
		}
		vValue.SetBool(v)
	}
	return nil
}
